package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"liyu1981.xyz/greenhouse-telemetry/pkg/iot"
)

type IOTServer struct {
	Iot *iot.IOT
}

// NewServer builds a gRPC server exposing the ingest service and the standard
// health service.
func NewServer(iotObj *iot.IOT, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.UnaryInterceptor(CreateLoggingInterceptor())}, opts...)
	s := grpc.NewServer(opts...)

	RegisterIngestServiceServer(s, &IOTServer{Iot: iotObj})

	healthServer := health.NewServer()
	healthServer.SetServingStatus(IngestServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)

	return s
}
