package api

import (
	"context"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a shiftd server.
type Client struct {
	conn *grpc.ClientConn
	api  ChannelsClient
}

// Connect creates a client for the server at addr. Without dial options the
// connection is made in plaintext.
func Connect(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, api: NewChannelsClient(conn)}, nil
}

// Conn returns the underlying connection, e.g. for health checks.
func (c *Client) Conn() *grpc.ClientConn {
	return c.conn
}

// Close closes the connection. Open handles are not released.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Open acquires the named channel ("encrypt" or "decrypt").
func (c *Client) Open(ctx context.Context, channel string) (*Handle, error) {
	resp, err := c.api.Open(ctx, wrapperspb.String(channel))
	if err != nil {
		return nil, err
	}
	return &Handle{api: c.api, token: resp.GetValue()}, nil
}

// Handle is an open session on a remote channel.
type Handle struct {
	api   ChannelsClient
	token string
}

// Token returns the session token.
func (h *Handle) Token() string {
	return h.token
}

func (h *Handle) context(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, SessionTokenKey, h.token)
}

// Write replaces the channel contents with the transform of data and returns
// the number of bytes accepted.
func (h *Handle) Write(ctx context.Context, data []byte) (int, error) {
	resp, err := h.api.Write(h.context(ctx), wrapperspb.Bytes(data))
	if err != nil {
		return 0, err
	}
	return int(resp.GetValue()), nil
}

// Read returns the next chunk of at most max bytes. An empty chunk means
// the current contents have been read in full.
func (h *Handle) Read(ctx context.Context, max int) ([]byte, error) {
	resp, err := h.api.Read(h.context(ctx), wrapperspb.UInt32(readSize(max)))
	if err != nil {
		return nil, err
	}
	return resp.GetValue(), nil
}

// readSize clamps max into the range of the wire field.
func readSize(max int) uint32 {
	switch {
	case max < 0:
		return 0
	case int64(max) > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(max)
	}
}

// ReadAll reads chunks of size chunk until end-of-data.
func (h *Handle) ReadAll(ctx context.Context, chunk int) ([]byte, error) {
	if chunk <= 0 {
		chunk = 1
	}
	var out []byte
	for {
		b, err := h.Read(ctx, chunk)
		if err != nil {
			return out, err
		}
		if len(b) == 0 {
			return out, nil
		}
		out = append(out, b...)
	}
}

// Close releases the channel.
func (h *Handle) Close(ctx context.Context) error {
	_, err := h.api.Close(h.context(ctx), &emptypb.Empty{})
	return err
}
