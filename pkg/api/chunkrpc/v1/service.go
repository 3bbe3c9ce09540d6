package chunkrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "chunkrpc.v1.ChunkService"

const (
	GetChunkMethod      = "/" + ServiceName + "/GetChunk"
	AddChunkMethod      = "/" + ServiceName + "/AddChunk"
	DeleteChunksMethod  = "/" + ServiceName + "/DeleteChunks"
	ResumeDeletesMethod = "/" + ServiceName + "/ResumeDeletes"
	ListPendingMethod   = "/" + ServiceName + "/ListPending"
)

// =============================================================================
// Client
// =============================================================================

type ChunkServiceClient interface {
	GetChunk(ctx context.Context, in *GetChunkRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[GetChunkResponse], error)
	AddChunk(ctx context.Context, in *AddChunkRequest, opts ...grpc.CallOption) (*AddChunkResponse, error)
	DeleteChunks(ctx context.Context, in *DeleteChunksRequest, opts ...grpc.CallOption) (*DeleteChunksResponse, error)
	ResumeDeletes(ctx context.Context, in *ResumeDeletesRequest, opts ...grpc.CallOption) (*DeleteChunksResponse, error)
	ListPending(ctx context.Context, in *ListPendingRequest, opts ...grpc.CallOption) (*ListPendingResponse, error)
}

type chunkServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChunkServiceClient(cc grpc.ClientConnInterface) ChunkServiceClient {
	return &chunkServiceClient{cc: cc}
}

// withCodec 把 CBOR 放在最前面，调用方的选项可以覆盖它
func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{CallOption()}, opts...)
}

func (c *chunkServiceClient) GetChunk(ctx context.Context, in *GetChunkRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[GetChunkResponse], error) {
	stream, err := c.cc.NewStream(ctx, &ChunkServiceDesc.Streams[0], GetChunkMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[GetChunkRequest, GetChunkResponse]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *chunkServiceClient) AddChunk(ctx context.Context, in *AddChunkRequest, opts ...grpc.CallOption) (*AddChunkResponse, error) {
	out := new(AddChunkResponse)
	if err := c.cc.Invoke(ctx, AddChunkMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chunkServiceClient) DeleteChunks(ctx context.Context, in *DeleteChunksRequest, opts ...grpc.CallOption) (*DeleteChunksResponse, error) {
	out := new(DeleteChunksResponse)
	if err := c.cc.Invoke(ctx, DeleteChunksMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chunkServiceClient) ResumeDeletes(ctx context.Context, in *ResumeDeletesRequest, opts ...grpc.CallOption) (*DeleteChunksResponse, error) {
	out := new(DeleteChunksResponse)
	if err := c.cc.Invoke(ctx, ResumeDeletesMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chunkServiceClient) ListPending(ctx context.Context, in *ListPendingRequest, opts ...grpc.CallOption) (*ListPendingResponse, error) {
	out := new(ListPendingResponse)
	if err := c.cc.Invoke(ctx, ListPendingMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// Server
// =============================================================================

type ChunkServiceServer interface {
	GetChunk(*GetChunkRequest, grpc.ServerStreamingServer[GetChunkResponse]) error
	AddChunk(context.Context, *AddChunkRequest) (*AddChunkResponse, error)
	DeleteChunks(context.Context, *DeleteChunksRequest) (*DeleteChunksResponse, error)
	ResumeDeletes(context.Context, *ResumeDeletesRequest) (*DeleteChunksResponse, error)
	ListPending(context.Context, *ListPendingRequest) (*ListPendingResponse, error)
	mustEmbedUnimplementedChunkServiceServer()
}

// UnimplementedChunkServiceServer 必须被嵌入，新增方法时旧实现依然能编译
type UnimplementedChunkServiceServer struct{}

func (UnimplementedChunkServiceServer) GetChunk(*GetChunkRequest, grpc.ServerStreamingServer[GetChunkResponse]) error {
	return status.Error(codes.Unimplemented, "method GetChunk not implemented")
}
func (UnimplementedChunkServiceServer) AddChunk(context.Context, *AddChunkRequest) (*AddChunkResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddChunk not implemented")
}
func (UnimplementedChunkServiceServer) DeleteChunks(context.Context, *DeleteChunksRequest) (*DeleteChunksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteChunks not implemented")
}
func (UnimplementedChunkServiceServer) ResumeDeletes(context.Context, *ResumeDeletesRequest) (*DeleteChunksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResumeDeletes not implemented")
}
func (UnimplementedChunkServiceServer) ListPending(context.Context, *ListPendingRequest) (*ListPendingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPending not implemented")
}
func (UnimplementedChunkServiceServer) mustEmbedUnimplementedChunkServiceServer() {}

func RegisterChunkServiceServer(s grpc.ServiceRegistrar, srv ChunkServiceServer) {
	s.RegisterService(&ChunkServiceDesc, srv)
}

func getChunkHandler(srv any, stream grpc.ServerStream) error {
	m := new(GetChunkRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ChunkServiceServer).GetChunk(m, &grpc.GenericServerStream[GetChunkRequest, GetChunkResponse]{ServerStream: stream})
}

// unaryHandler 生成一个 unary 方法的 handler，省去每个方法重复的样板代码
func unaryHandler[Req, Resp any](method string, call func(ChunkServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChunkServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChunkServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ChunkServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChunkServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddChunk",
			Handler:    unaryHandler(AddChunkMethod, ChunkServiceServer.AddChunk),
		},
		{
			MethodName: "DeleteChunks",
			Handler:    unaryHandler(DeleteChunksMethod, ChunkServiceServer.DeleteChunks),
		},
		{
			MethodName: "ResumeDeletes",
			Handler:    unaryHandler(ResumeDeletesMethod, ChunkServiceServer.ResumeDeletes),
		},
		{
			MethodName: "ListPending",
			Handler:    unaryHandler(ListPendingMethod, ChunkServiceServer.ListPending),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetChunk",
			Handler:       getChunkHandler,
			ServerStreams: true,
		},
	},
	Metadata: "chunkrpc/v1/chunk.proto",
}
