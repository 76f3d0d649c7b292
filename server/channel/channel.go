package channel

import (
	"sync"
	"sync/atomic"

	"github.com/nats-io/nuid"
	"github.com/pkg/errors"

	"github.com/shiftd-io/shiftd/server/caesar"
	"github.com/shiftd-io/shiftd/server/logger"
)

// Capacity is the size of a channel buffer. Longer writes are truncated.
const Capacity = 40

// Channel is an exclusive-access buffer bound to one shift direction.
type Channel struct {
	id       ID
	shift    int
	transfer Transferer
	logger   logger.Logger

	// locked is the exclusivity flag. It is only ever set by a
	// compare-and-swap so two acquirers can never both observe it clear.
	locked atomic.Bool

	mu     sync.Mutex // protects the fields below
	holder *Session
	buf    [Capacity]byte
	size   int
}

func newChannel(id ID, shift int, transfer Transferer, log logger.Logger) *Channel {
	return &Channel{
		id:       id,
		shift:    shift,
		transfer: transfer,
		logger:   log,
	}
}

// ID returns the identity of the channel.
func (c *Channel) ID() ID {
	return c.id
}

// Shift returns the signed rotation applied on write.
func (c *Channel) Shift() int {
	return c.shift
}

// Locked reports whether a session currently holds the channel.
func (c *Channel) Locked() bool {
	return c.locked.Load()
}

// Acquire takes exclusive use of the channel. It never waits: if another
// session holds the channel it returns ErrBusy immediately.
func (c *Channel) Acquire() (*Session, error) {
	if !c.locked.CompareAndSwap(false, true) {
		c.logger.Warnf("Channel %s is in use by another session", c.id)
		return nil, ErrBusy
	}
	s := &Session{channel: c, token: nuid.Next()}
	c.mu.Lock()
	c.holder = s
	c.mu.Unlock()
	c.logger.Debugf("Channel %s opened by session %s", c.id, s.token)
	return s, nil
}

// Release gives up the channel held by s. The buffer is left as it is so the
// next session can still read it until it writes. Releasing with a session
// that is not the current holder returns ErrStaleSession and has no effect.
func (c *Channel) Release(s *Session) error {
	c.mu.Lock()
	if s == nil || c.holder != s {
		c.mu.Unlock()
		return ErrStaleSession
	}
	c.holder = nil
	s.cursor = 0
	c.mu.Unlock()
	c.locked.Store(false)
	c.logger.Debugf("Channel %s closed by session %s", c.id, s.token)
	return nil
}

func (c *Channel) write(s *Session, data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holder != s {
		return 0, ErrStaleSession
	}

	n := len(data)
	if n > Capacity {
		c.logger.Debugf("Channel %s truncating write of %d bytes to %d", c.id, n, Capacity)
		n = Capacity
	}

	// Stage the input first so a failed transfer leaves the buffer intact.
	var staged [Capacity]byte
	moved, err := c.transfer.Transfer(staged[:n], data[:n])
	if err == nil && moved != n {
		err = errors.Errorf("moved %d of %d bytes", moved, n)
	}
	if err != nil {
		c.logger.Errorf("Channel %s failed to receive %d bytes: %v", c.id, n, err)
		return 0, errors.Wrapf(ErrTransferFault, "write %s: %v", c.id, err)
	}

	caesar.ShiftInto(c.buf[:n], staged[:n], c.shift)
	for i := n; i < Capacity; i++ {
		c.buf[i] = 0
	}
	c.size = n
	s.cursor = 0
	return n, nil
}

func (c *Channel) read(s *Session, max int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holder != s {
		return nil, ErrStaleSession
	}
	if s.cursor >= c.size || max <= 0 {
		return []byte{}, nil
	}

	n := c.size - s.cursor
	if max < n {
		n = max
	}
	out := make([]byte, n)
	moved, err := c.transfer.Transfer(out, c.buf[s.cursor:s.cursor+n])
	if err == nil && moved != n {
		err = errors.Errorf("moved %d of %d bytes", moved, n)
	}
	if err != nil {
		c.logger.Errorf("Channel %s failed to send %d bytes: %v", c.id, n, err)
		return nil, errors.Wrapf(ErrTransferFault, "read %s: %v", c.id, err)
	}
	s.cursor += n
	return out, nil
}
