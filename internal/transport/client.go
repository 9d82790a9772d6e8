package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

var (
	// ErrUnavailable means the broker could not be reached or went away.
	ErrUnavailable = errors.New("transport: broker unavailable")
	// ErrClosed is returned by Exchange after Close.
	ErrClosed = errors.New("transport: client closed")
)

// Transport is one request/reply channel to the broker.
type Transport interface {
	Exchange(ctx context.Context, req *toyov1.Request) (*toyov1.Reply, error)
	Close() error
}

// Option configures a Client.
type Option func(*Client)

// WithCodec selects the wire codec by name (json, msgpack, pbstruct).
func WithCodec(name string) Option {
	return func(c *Client) { c.codec = name }
}

// WithRequestTimeout bounds each exchange. The wait a get asks for is added
// on top so long-polls are not cut short.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDialOptions appends gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) { c.dialOpts = append(c.dialOpts, opts...) }
}

// WithLogger sets the client logger.
func WithLogger(l logpkg.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is a Transport over the broker's gRPC endpoint.
type Client struct {
	endpoint Endpoint
	codec    string
	timeout  time.Duration
	dialOpts []grpc.DialOption
	logger   logpkg.Logger

	mu     sync.Mutex
	conn   *grpc.ClientConn
	cli    toyov1.BrokerClient
	closed bool
}

// Dial prepares a client for endpoint. The connection is established lazily
// on the first exchange.
func Dial(endpoint string, opts ...Option) (*Client, error) {
	ep, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	c := &Client{endpoint: ep, codec: toyov1.CodecNameJSON}
	for _, opt := range opts {
		opt(c)
	}
	if _, err := toyov1.GetCodec(c.codec); err != nil {
		return nil, err
	}
	if c.logger == nil {
		c.logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	c.logger = c.logger.With(logpkg.Component("transport"), logpkg.Str("endpoint", ep.String()))

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, c.dialOpts...)
	conn, err := grpc.NewClient(ep.Target(), dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.conn = conn
	c.cli = toyov1.NewBrokerClient(conn)
	return c, nil
}

// Endpoint returns the parsed endpoint.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// Exchange sends req and waits for its reply. Calls on one Client are
// serialized.
func (c *Client) Exchange(ctx context.Context, req *toyov1.Request) (*toyov1.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout+time.Duration(req.WaitMs)*time.Millisecond)
		defer cancel()
	}

	reply, err := c.cli.Exchange(callCtx, req, grpc.CallContentSubtype(c.codec))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify(err)
	}
	if err := reply.Validate(); err != nil {
		return nil, err
	}
	return reply, nil
}

// Close releases the connection. Further exchanges fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// classify maps a gRPC failure onto the package sentinels.
func classify(err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Internal, codes.Unimplemented, codes.InvalidArgument:
		return fmt.Errorf("%w: %s", toyov1.ErrMalformedReply, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", ErrUnavailable, st.Code(), st.Message())
	}
}
