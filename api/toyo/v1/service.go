package toyov1

import (
	"context"

	"google.golang.org/grpc"
)

// Service and method names of the Broker RPC.
const (
	BrokerServiceName      = "toyo.v1.Broker"
	BrokerExchangeFullName = "/toyo.v1.Broker/Exchange"
)

// BrokerServer answers one Request with one Reply. Protocol outcomes,
// including failures, belong in the Reply; a returned error means the
// exchange itself broke.
type BrokerServer interface {
	Exchange(ctx context.Context, req *Request) (*Reply, error)
}

// BrokerClient is the client side of BrokerServer.
type BrokerClient interface {
	Exchange(ctx context.Context, req *Request, opts ...grpc.CallOption) (*Reply, error)
}

type brokerClient struct {
	cc grpc.ClientConnInterface
}

// NewBrokerClient wraps cc. Callers pick a codec with grpc.CallContentSubtype.
func NewBrokerClient(cc grpc.ClientConnInterface) BrokerClient {
	return &brokerClient{cc: cc}
}

func (c *brokerClient) Exchange(ctx context.Context, req *Request, opts ...grpc.CallOption) (*Reply, error) {
	out := new(Reply)
	if err := c.cc.Invoke(ctx, BrokerExchangeFullName, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterBrokerServer registers srv on s.
func RegisterBrokerServer(s grpc.ServiceRegistrar, srv BrokerServer) {
	s.RegisterService(&BrokerServiceDesc, srv)
}

func brokerExchangeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BrokerServer).Exchange(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BrokerExchangeFullName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BrokerServer).Exchange(ctx, req.(*Request))
	}
	return interceptor(ctx, in, info, handler)
}

// BrokerServiceDesc describes toyo.v1.Broker for grpc.Server.RegisterService.
var BrokerServiceDesc = grpc.ServiceDesc{
	ServiceName: BrokerServiceName,
	HandlerType: (*BrokerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Exchange", Handler: brokerExchangeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "toyo/v1/broker.proto",
}
