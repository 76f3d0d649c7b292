package channel

import (
	"github.com/shiftd-io/shiftd/server/logger"
)

// DefaultShift is the rotation used when none is configured.
const DefaultShift = 3

// Registry holds the Encrypt and Decrypt channels. It is created once per
// process and both channels live as long as it does.
type Registry struct {
	shift    int
	channels [2]*Channel
}

type options struct {
	logger   logger.Logger
	transfer Transferer
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the logger channel events are written to.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTransferer replaces the boundary used to move bytes in and out of the
// channel buffers.
func WithTransferer(t Transferer) Option {
	return func(o *options) {
		o.transfer = t
	}
}

// NewRegistry creates both channels in the idle state. Encrypt rotates by
// +shift and Decrypt by -shift.
func NewRegistry(shift int, opts ...Option) *Registry {
	o := &options{transfer: CopyTransfer}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.NewLogger(0)
		o.logger.Silent(true)
	}
	r := &Registry{shift: shift}
	r.channels[Encrypt] = newChannel(Encrypt, shift, o.transfer, o.logger)
	r.channels[Decrypt] = newChannel(Decrypt, -shift, o.transfer, o.logger)
	return r
}

// Shift returns the configured shift magnitude.
func (r *Registry) Shift() int {
	return r.shift
}

// Resolve returns the channel with the given identity.
func (r *Registry) Resolve(id ID) (*Channel, error) {
	if !id.Valid() {
		return nil, ErrUnknownChannel
	}
	return r.channels[id], nil
}

// Open resolves the channel and acquires it.
func (r *Registry) Open(id ID) (*Session, error) {
	c, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	return c.Acquire()
}

// Channels returns both channels ordered by identity.
func (r *Registry) Channels() []*Channel {
	return []*Channel{r.channels[Encrypt], r.channels[Decrypt]}
}
