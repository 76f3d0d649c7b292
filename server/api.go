package server

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	client "github.com/shiftd-io/shiftd/api"
	"github.com/shiftd-io/shiftd/server/channel"
)

// apiServer implements the gRPC server interface clients interact with.
type apiServer struct {
	*Server
}

// Open acquires the named channel and returns the session token. It returns
// an Unavailable status code if another session holds the channel.
func (a *apiServer) Open(ctx context.Context, req *wrapperspb.StringValue) (
	*wrapperspb.StringValue, error) {

	a.logger.Debugf("api: Open [channel=%s]", req.GetValue())
	sess, err := a.openSession(clientIDFromContext(ctx), req.GetValue(), true)
	if err != nil {
		return nil, statusError(err)
	}
	return wrapperspb.String(sess.Token()), nil
}

// Write replaces the channel contents with the transform of the request
// bytes and returns how many were accepted.
func (a *apiServer) Write(ctx context.Context, req *wrapperspb.BytesValue) (
	*wrapperspb.UInt32Value, error) {

	sess, err := a.sessionFromContext(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	a.logger.Debugf("api: Write [session=%s, bytes=%d]", sess.Token(), len(req.GetValue()))
	n, err := sess.Write(req.GetValue())
	if err != nil {
		a.logger.Errorf("api: Failed to write to %s: %v", sess.Channel(), err)
		return nil, statusError(err)
	}
	return wrapperspb.UInt32(uint32(n)), nil
}

// Read returns the next chunk of at most the requested size. An empty chunk
// signals that the current contents have been read in full.
func (a *apiServer) Read(ctx context.Context, req *wrapperspb.UInt32Value) (
	*wrapperspb.BytesValue, error) {

	sess, err := a.sessionFromContext(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	a.logger.Debugf("api: Read [session=%s, max=%d]", sess.Token(), req.GetValue())
	chunk, err := sess.Read(readSize(uint64(req.GetValue())))
	if err != nil {
		a.logger.Errorf("api: Failed to read from %s: %v", sess.Channel(), err)
		return nil, statusError(err)
	}
	return wrapperspb.Bytes(chunk), nil
}

// Close releases the channel held by the session.
func (a *apiServer) Close(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	token, err := tokenFromContext(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	a.logger.Debugf("api: Close [session=%s]", token)
	if err := a.sessions.close(token); err != nil {
		return nil, statusError(err)
	}
	return &emptypb.Empty{}, nil
}

// openSession resolves the channel name, checks authorization when enabled
// and acquires the channel. Authorization only applies to callers that can
// present an identity, which is the gRPC surface.
func (s *Server) openSession(clientID, name string, checkAuthz bool) (*channel.Session, error) {
	id, err := channel.ParseID(name)
	if err != nil {
		return nil, err
	}
	if checkAuthz && s.authz != nil {
		ok, err := s.authz.authorize(clientID, id.String(), actionOpen)
		if err != nil {
			s.logger.Errorf("api: Failed to evaluate authorization for %q: %v", clientID, err)
			return nil, err
		}
		if !ok {
			s.logger.Warnf("api: Client %q is not allowed to open %s", clientID, id)
			return nil, errors.Wrapf(errPermissionDenied, "client %q may not open %s", clientID, id)
		}
	}
	sess, err := s.sessions.open(id)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Channel %s has been opened", id)
	return sess, nil
}

// readSize converts a requested read size to an int. No read returns more
// than a channel holds, so larger requests are capped at its capacity.
func readSize(max uint64) int {
	if max > channel.Capacity {
		return channel.Capacity
	}
	return int(max)
}

func (s *Server) sessionFromContext(ctx context.Context) (*channel.Session, error) {
	token, err := tokenFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.sessions.get(token)
}

func tokenFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errMissingToken
	}
	values := md.Get(client.SessionTokenKey)
	if len(values) == 0 || values[0] == "" {
		return "", errMissingToken
	}
	return values[0], nil
}
