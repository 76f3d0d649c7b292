package channel

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, r *Registry, id ID) *Session {
	s, err := r.Open(id)
	require.NoError(t, err)
	return s
}

// Ensure "Hello" encrypts to "Khoor" and decrypts back.
func TestEncryptDecryptHello(t *testing.T) {
	r := NewRegistry(DefaultShift)

	enc := openTest(t, r, Encrypt)
	n, err := enc.Write([]byte("Hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	out, err := enc.Read(100)
	require.NoError(t, err)
	require.Equal(t, "Khoor", string(out))

	dec := openTest(t, r, Decrypt)
	_, err = dec.Write(out)
	require.NoError(t, err)
	out, err = dec.Read(100)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(out))

	require.NoError(t, enc.Close())
	require.NoError(t, dec.Close())
}

// Ensure the space is part of the alphabet and rotation wraps through it.
func TestEncryptWraparound(t *testing.T) {
	r := NewRegistry(3)
	s := openTest(t, r, Encrypt)
	defer s.Close()

	_, err := s.Write([]byte("abc XYZ"))
	require.NoError(t, err)
	out, err := s.Read(Capacity)
	require.NoError(t, err)
	require.Equal(t, "defc ab", string(out))
}

// Ensure writes longer than the buffer are truncated to Capacity.
func TestWriteTruncates(t *testing.T) {
	r := NewRegistry(3)
	s := openTest(t, r, Encrypt)
	defer s.Close()

	data := bytes.Repeat([]byte("a"), 50)
	n, err := s.Write(data)
	require.NoError(t, err)
	require.Equal(t, Capacity, n)

	c, err := r.Resolve(Encrypt)
	require.NoError(t, err)
	require.Equal(t, Capacity, c.size)

	out, err := s.Read(100)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte("d"), Capacity), out)

	out, err = s.Read(100)
	require.NoError(t, err)
	require.Empty(t, out)
}

// Ensure a write replaces the previous contents, zeroes the tail and rewinds
// the cursor.
func TestWriteReplaces(t *testing.T) {
	r := NewRegistry(3)
	s := openTest(t, r, Encrypt)
	defer s.Close()

	_, err := s.Write([]byte("a longer message than the next"))
	require.NoError(t, err)
	_, err = s.Read(4)
	require.NoError(t, err)
	require.Equal(t, 4, s.Cursor())

	n, err := s.Write([]byte("Hi"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 0, s.Cursor())

	c, _ := r.Resolve(Encrypt)
	require.Equal(t, 2, c.size)
	require.Equal(t, make([]byte, Capacity-2), c.buf[2:])

	out, err := s.Read(100)
	require.NoError(t, err)
	require.Equal(t, "Kl", string(out))
}

func TestWriteEmpty(t *testing.T) {
	r := NewRegistry(3)
	s := openTest(t, r, Encrypt)
	defer s.Close()

	_, err := s.Write([]byte("abc"))
	require.NoError(t, err)
	n, err := s.Write(nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	out, err := s.Read(10)
	require.NoError(t, err)
	require.Empty(t, out)
}

// Ensure reads of 10, 10 and 25 over a 40 byte buffer return 10, 10 and 20
// bytes and then end-of-data.
func TestPartialReads(t *testing.T) {
	r := NewRegistry(3)
	s := openTest(t, r, Encrypt)
	defer s.Close()

	data := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ abcdefghijklm")
	require.Len(t, data, Capacity)
	_, err := s.Write(data)
	require.NoError(t, err)

	first, err := s.Read(10)
	require.NoError(t, err)
	require.Len(t, first, 10)
	second, err := s.Read(10)
	require.NoError(t, err)
	require.Len(t, second, 10)
	third, err := s.Read(25)
	require.NoError(t, err)
	require.Len(t, third, 20)
	require.Equal(t, Capacity, s.Cursor())

	rest, err := s.Read(25)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, Capacity, s.Cursor())

	all := append(append(first, second...), third...)
	require.Equal(t, "DEFGHIJKLMNOPQRSTUVWXYZ abcdefghijklmnop", string(all))
}

func TestReadNonPositive(t *testing.T) {
	r := NewRegistry(3)
	s := openTest(t, r, Encrypt)
	defer s.Close()

	_, err := s.Write([]byte("abc"))
	require.NoError(t, err)

	out, err := s.Read(0)
	require.NoError(t, err)
	require.Empty(t, out)
	out, err = s.Read(-5)
	require.NoError(t, err)
	require.Empty(t, out)
	require.Equal(t, 0, s.Cursor())
}

// Ensure reading before any write returns end-of-data.
func TestReadBeforeWrite(t *testing.T) {
	r := NewRegistry(3)
	s := openTest(t, r, Decrypt)
	defer s.Close()

	out, err := s.Read(10)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

// Ensure a second acquire fails with ErrBusy until the holder releases.
func TestExclusivity(t *testing.T) {
	r := NewRegistry(3)
	c, err := r.Resolve(Encrypt)
	require.NoError(t, err)

	s1, err := c.Acquire()
	require.NoError(t, err)
	require.True(t, c.Locked())

	_, err = c.Acquire()
	require.True(t, errors.Is(err, ErrBusy))

	// The other channel is independent.
	other, err := r.Open(Decrypt)
	require.NoError(t, err)
	require.NoError(t, other.Close())

	require.NoError(t, s1.Close())
	require.False(t, c.Locked())

	s2, err := c.Acquire()
	require.NoError(t, err)
	require.NotEqual(t, s1.Token(), s2.Token())
	require.NoError(t, s2.Close())
}

// Ensure a released session can no longer touch the channel, even after a
// new session took it over.
func TestStaleSession(t *testing.T) {
	r := NewRegistry(3)
	s1 := openTest(t, r, Encrypt)
	_, err := s1.Write([]byte("secret"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	_, err = s1.Write([]byte("x"))
	require.Equal(t, ErrStaleSession, err)
	_, err = s1.Read(10)
	require.Equal(t, ErrStaleSession, err)
	require.Equal(t, ErrStaleSession, s1.Close())

	s2 := openTest(t, r, Encrypt)
	require.Equal(t, ErrStaleSession, s1.Close())
	c, _ := r.Resolve(Encrypt)
	require.True(t, c.Locked(), "stale close must not release the new holder")

	// The buffer survives across sessions until the next write.
	out, err := s2.Read(100)
	require.NoError(t, err)
	require.Equal(t, "vhfuhw", string(out))
	require.NoError(t, s2.Close())
}

func TestReleaseNil(t *testing.T) {
	r := NewRegistry(3)
	c, _ := r.Resolve(Encrypt)
	require.Equal(t, ErrStaleSession, c.Release(nil))
}

// Ensure a failing transfer on write leaves the buffer and cursor untouched.
func TestWriteTransferFault(t *testing.T) {
	var fail atomic.Bool
	transfer := TransferFunc(func(dst, src []byte) (int, error) {
		if fail.Load() {
			return 0, errors.New("bad address")
		}
		return copy(dst, src), nil
	})
	r := NewRegistry(3, WithTransferer(transfer))
	s := openTest(t, r, Encrypt)
	defer s.Close()

	_, err := s.Write([]byte("Hello"))
	require.NoError(t, err)
	_, err = s.Read(2)
	require.NoError(t, err)

	fail.Store(true)
	n, err := s.Write([]byte("World"))
	require.True(t, errors.Is(err, ErrTransferFault))
	require.Equal(t, 0, n)
	require.Equal(t, 2, s.Cursor())

	fail.Store(false)
	out, err := s.Read(10)
	require.NoError(t, err)
	require.Equal(t, "oor", string(out))
}

// Ensure a short transfer counts as a fault and does not advance the cursor.
func TestReadTransferFault(t *testing.T) {
	var short atomic.Bool
	transfer := TransferFunc(func(dst, src []byte) (int, error) {
		if short.Load() {
			return copy(dst, src[:len(src)/2]), nil
		}
		return copy(dst, src), nil
	})
	r := NewRegistry(3, WithTransferer(transfer))
	s := openTest(t, r, Encrypt)
	defer s.Close()

	_, err := s.Write([]byte("Hello"))
	require.NoError(t, err)

	short.Store(true)
	out, err := s.Read(10)
	require.True(t, errors.Is(err, ErrTransferFault))
	require.Nil(t, out)
	require.Equal(t, 0, s.Cursor())

	short.Store(false)
	out, err = s.Read(10)
	require.NoError(t, err)
	require.Equal(t, "Khoor", string(out))
}

// Ensure concurrent acquirers never both win.
func TestConcurrentAcquire(t *testing.T) {
	r := NewRegistry(3)
	c, _ := r.Resolve(Decrypt)

	const workers = 64
	var (
		wg       sync.WaitGroup
		winners  int32
		busy     int32
		start    = make(chan struct{})
		sessions = make(chan *Session, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s, err := c.Acquire()
			if err != nil {
				require.True(t, errors.Is(err, ErrBusy))
				atomic.AddInt32(&busy, 1)
				return
			}
			atomic.AddInt32(&winners, 1)
			sessions <- s
		}()
	}
	close(start)
	wg.Wait()
	close(sessions)

	require.Equal(t, int32(1), winners)
	require.Equal(t, int32(workers-1), busy)
	for s := range sessions {
		require.NoError(t, s.Close())
	}
}
