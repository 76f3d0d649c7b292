// Package caesar implements the alphabetic rotation applied by the shiftd
// channels. It is a fixed, reversible, non-secret transform and must not be
// used where confidentiality matters.
package caesar

// Alphabet is the rotation domain. Its order defines the meaning of a shift.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ abcdefghijklmnopqrstuvwxyz"

// Size is the number of bytes in Alphabet.
const Size = len(Alphabet)

// positions maps every byte value to its index in Alphabet, or -1.
var positions [256]int

func init() {
	for i := range positions {
		positions[i] = -1
	}
	for i := 0; i < Size; i++ {
		positions[Alphabet[i]] = i
	}
}

// Contains reports whether c is part of Alphabet.
func Contains(c byte) bool {
	return positions[c] >= 0
}

// Normalize reduces shift into [0, Size). Negative shifts are rotated the
// other way, so Normalize(-1) == Size-1.
func Normalize(shift int) int {
	n := shift % Size
	if n < 0 {
		n += Size
	}
	return n
}

// Shift returns a copy of input with every Alphabet byte rotated by shift
// positions. Bytes outside Alphabet are returned unchanged.
func Shift(input []byte, shift int) []byte {
	output := make([]byte, len(input))
	ShiftInto(output, input, shift)
	return output
}

// ShiftInto writes the rotation of src into dst and returns the number of
// bytes written, which is the smaller of len(dst) and len(src). dst and src
// may be the same slice.
func ShiftInto(dst, src []byte, shift int) int {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	k := Normalize(shift)
	for i := 0; i < n; i++ {
		c := src[i]
		p := positions[c]
		if p < 0 {
			dst[i] = c
			continue
		}
		p += k
		if p >= Size {
			p -= Size
		}
		dst[i] = Alphabet[p]
	}
	return n
}
