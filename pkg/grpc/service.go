package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The ingest service carries the same opaque envelope as the HTTP route, so it
// is described with well-known wrapper types instead of generated messages:
//
//	service Ingest {
//	  rpc PostReadings(google.protobuf.StringValue) returns (google.protobuf.StringValue);
//	}
const (
	IngestServiceName        = "greenhouse.v1.Ingest"
	IngestPostReadingsMethod = "/greenhouse.v1.Ingest/PostReadings"
)

type IngestServiceServer interface {
	PostReadings(ctx context.Context, envelope *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

func RegisterIngestServiceServer(s grpc.ServiceRegistrar, srv IngestServiceServer) {
	s.RegisterService(&IngestServiceDesc, srv)
}

func postReadingsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngestServiceServer).PostReadings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: IngestPostReadingsMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IngestServiceServer).PostReadings(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var IngestServiceDesc = grpc.ServiceDesc{
	ServiceName: IngestServiceName,
	HandlerType: (*IngestServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "PostReadings",
			Handler:    postReadingsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "greenhouse/v1/ingest.proto",
}

type IngestServiceClient interface {
	PostReadings(ctx context.Context, envelope *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type ingestServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewIngestServiceClient(cc grpc.ClientConnInterface) IngestServiceClient {
	return &ingestServiceClient{cc}
}

func (c *ingestServiceClient) PostReadings(ctx context.Context, envelope *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, IngestPostReadingsMethod, envelope, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
