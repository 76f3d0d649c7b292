package channel

import "errors"

var (
	// ErrBusy is returned when acquiring a channel that is held by another
	// session. Callers may retry later.
	ErrBusy = errors.New("channel is in use by another session")

	// ErrUnknownChannel is returned for identities other than Encrypt and
	// Decrypt.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrStaleSession is returned when a session that no longer holds its
	// channel is used to read, write or release it.
	ErrStaleSession = errors.New("session no longer holds the channel")

	// ErrTransferFault is returned when bytes could not be moved across the
	// transfer boundary. The channel state is left unchanged.
	ErrTransferFault = errors.New("transfer fault")
)
