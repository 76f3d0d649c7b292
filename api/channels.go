// Package api declares the shiftd gRPC service and a client for it.
//
// The service carries its payloads in protobuf well-known wrapper types, so
// no generated code is needed. The session token travels in the
// SessionTokenKey request metadata for every call but Open.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "shiftd.Channels"

	// SessionTokenKey is the metadata key carrying the session token.
	SessionTokenKey = "shiftd-session"
)

const (
	openMethod  = "/" + ServiceName + "/Open"
	writeMethod = "/" + ServiceName + "/Write"
	readMethod  = "/" + ServiceName + "/Read"
	closeMethod = "/" + ServiceName + "/Close"
)

// ChannelsServer is the server API for the Channels service.
type ChannelsServer interface {
	// Open acquires the named channel and returns a session token.
	Open(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	// Write stores the transform of the given bytes and returns how many
	// were accepted.
	Write(context.Context, *wrapperspb.BytesValue) (*wrapperspb.UInt32Value, error)
	// Read returns the next chunk of at most the given size.
	Read(context.Context, *wrapperspb.UInt32Value) (*wrapperspb.BytesValue, error)
	// Close releases the channel.
	Close(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// RegisterChannelsServer registers srv on s.
func RegisterChannelsServer(s grpc.ServiceRegistrar, srv ChannelsServer) {
	s.RegisterService(&channelsServiceDesc, srv)
}

func openHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelsServer).Open(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: openMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ChannelsServer).Open(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func writeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelsServer).Write(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: writeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ChannelsServer).Write(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func readHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelsServer).Read(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: readMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ChannelsServer).Read(ctx, req.(*wrapperspb.UInt32Value))
	}
	return interceptor(ctx, in, info, handler)
}

func closeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelsServer).Close(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: closeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ChannelsServer).Close(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var channelsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChannelsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Open", Handler: openHandler},
		{MethodName: "Write", Handler: writeHandler},
		{MethodName: "Read", Handler: readHandler},
		{MethodName: "Close", Handler: closeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shiftd/channels",
}

// ChannelsClient is the client API for the Channels service.
type ChannelsClient interface {
	Open(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Write(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.UInt32Value, error)
	Read(ctx context.Context, in *wrapperspb.UInt32Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Close(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type channelsClient struct {
	cc grpc.ClientConnInterface
}

// NewChannelsClient returns a ChannelsClient using cc.
func NewChannelsClient(cc grpc.ClientConnInterface) ChannelsClient {
	return &channelsClient{cc}
}

func (c *channelsClient) Open(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, openMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *channelsClient) Write(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.UInt32Value, error) {
	out := new(wrapperspb.UInt32Value)
	if err := c.cc.Invoke(ctx, writeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *channelsClient) Read(ctx context.Context, in *wrapperspb.UInt32Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, readMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *channelsClient) Close(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, closeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
