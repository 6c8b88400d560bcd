package wire

import (
	"context"

	"google.golang.org/grpc"
)

// PutArgs/PutReply, GetArgs/GetReply and BarrierArgs/BarrierReply are the
// unary RPC payloads backing Endpoint.Put/Get/Barrier. They are plain
// structs (see codec.go for why) rather than generated protobuf types.
type PutArgs struct {
	Addr uint64
	Data []byte
}

type PutReply struct{}

type GetArgs struct {
	Addr uint64
	Size int32
}

type GetReply struct {
	Data []byte
}

type BarrierArgs struct {
	Tag        string
	Locale     int32
	Generation int32
}

type BarrierReply struct {
	Generation int32
}

// EndpointServer is implemented by the receiving side of every locale:
// the AM stream handler plus the one-sided/collective RPCs. BarrierNotify
// records an arrival and returns immediately; BarrierWait blocks (on the
// coordinator, locale 0) until every locale has notified.
type EndpointServer interface {
	AMStream(AMStream_Server) error
	Put(context.Context, *PutArgs) (*PutReply, error)
	Get(context.Context, *GetArgs) (*GetReply, error)
	BarrierNotify(context.Context, *BarrierArgs) (*BarrierReply, error)
	BarrierWait(context.Context, *BarrierArgs) (*BarrierReply, error)
}

// AMStream_Server is the server-side handle for the bidirectional AM
// stream: receive Frames sent by the peer, send Frames back to it.
type AMStream_Server interface {
	Send(*Frame) error
	Recv() (*Frame, error)
	grpc.ServerStream
}

type amStreamServer struct {
	grpc.ServerStream
}

func (s *amStreamServer) Send(f *Frame) error { return s.ServerStream.SendMsg(f) }
func (s *amStreamServer) Recv() (*Frame, error) {
	f := new(Frame)
	if err := s.ServerStream.RecvMsg(f); err != nil {
		return nil, err
	}
	return f, nil
}

// AMStream_Client is the client-side handle for the same stream.
type AMStream_Client interface {
	Send(*Frame) error
	Recv() (*Frame, error)
	grpc.ClientStream
}

type amStreamClient struct {
	grpc.ClientStream
}

func (c *amStreamClient) Send(f *Frame) error { return c.ClientStream.SendMsg(f) }
func (c *amStreamClient) Recv() (*Frame, error) {
	f := new(Frame)
	if err := c.ClientStream.RecvMsg(f); err != nil {
		return nil, err
	}
	return f, nil
}

const serviceName = "localecomm.wire.Endpoint"

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EndpointServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: putHandler},
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "BarrierNotify", Handler: barrierNotifyHandler},
		{MethodName: "BarrierWait", Handler: barrierWaitHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "AMStream",
			Handler:       amStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "localecomm/wire/service.go",
}

func putHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PutArgs)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EndpointServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Put"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EndpointServer).Put(ctx, req.(*PutArgs))
	}
	return interceptor(ctx, in, info, handler)
}

func getHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetArgs)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EndpointServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EndpointServer).Get(ctx, req.(*GetArgs))
	}
	return interceptor(ctx, in, info, handler)
}

func barrierNotifyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BarrierArgs)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EndpointServer).BarrierNotify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/BarrierNotify"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EndpointServer).BarrierNotify(ctx, req.(*BarrierArgs))
	}
	return interceptor(ctx, in, info, handler)
}

func barrierWaitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BarrierArgs)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EndpointServer).BarrierWait(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/BarrierWait"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EndpointServer).BarrierWait(ctx, req.(*BarrierArgs))
	}
	return interceptor(ctx, in, info, handler)
}

func amStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(EndpointServer).AMStream(&amStreamServer{stream})
}

// registerEndpointServer wires an EndpointServer implementation into a
// *grpc.Server, the manual equivalent of generated RegisterXServer code.
func registerEndpointServer(s *grpc.Server, srv EndpointServer) {
	s.RegisterService(&serviceDesc, srv)
}

func newAMStreamClient(ctx context.Context, cc *grpc.ClientConn) (AMStream_Client, error) {
	stream, err := cc.NewStream(ctx, &serviceDesc.Streams[0], serviceName+"/AMStream")
	if err != nil {
		return nil, err
	}
	return &amStreamClient{stream}, nil
}

func callPut(ctx context.Context, cc *grpc.ClientConn, in *PutArgs) (*PutReply, error) {
	out := new(PutReply)
	if err := cc.Invoke(ctx, serviceName+"/Put", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func callGet(ctx context.Context, cc *grpc.ClientConn, in *GetArgs) (*GetReply, error) {
	out := new(GetReply)
	if err := cc.Invoke(ctx, serviceName+"/Get", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func callBarrierNotify(ctx context.Context, cc *grpc.ClientConn, in *BarrierArgs) (*BarrierReply, error) {
	out := new(BarrierReply)
	if err := cc.Invoke(ctx, serviceName+"/BarrierNotify", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func callBarrierWait(ctx context.Context, cc *grpc.ClientConn, in *BarrierArgs) (*BarrierReply, error) {
	out := new(BarrierReply)
	if err := cc.Invoke(ctx, serviceName+"/BarrierWait", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
