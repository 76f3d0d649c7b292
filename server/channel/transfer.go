package channel

// Transferer moves bytes across the boundary between a caller and a channel
// buffer. Transfer copies src into dst, which always have the same length,
// and returns the number of bytes moved. Anything short of len(src) without
// an error is treated as a fault as well.
type Transferer interface {
	Transfer(dst, src []byte) (int, error)
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(dst, src []byte) (int, error)

// Transfer calls f(dst, src).
func (f TransferFunc) Transfer(dst, src []byte) (int, error) {
	return f(dst, src)
}

// CopyTransfer is the in-process boundary. It cannot fail.
var CopyTransfer Transferer = TransferFunc(func(dst, src []byte) (int, error) {
	return copy(dst, src), nil
})
