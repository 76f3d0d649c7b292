package server

import (
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/shiftd-io/shiftd/server/channel"
)

var (
	errMissingToken     = errors.New("session token is required")
	errInvalidArgument  = errors.New("invalid argument")
	errPermissionDenied = errors.New("permission denied")
)

// errorCode maps an API error to the gRPC code reported to clients.
func errorCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, channel.ErrBusy), errors.Is(err, errSessionsClosed):
		return codes.Unavailable
	case errors.Is(err, channel.ErrUnknownChannel), errors.Is(err, errSessionNotFound):
		return codes.NotFound
	case errors.Is(err, channel.ErrStaleSession):
		return codes.FailedPrecondition
	case errors.Is(err, errMissingToken), errors.Is(err, errInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, errPermissionDenied):
		return codes.PermissionDenied
	case errors.Is(err, channel.ErrTransferFault):
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// statusError converts an API error into a gRPC status error.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(errorCode(err), err.Error())
}
