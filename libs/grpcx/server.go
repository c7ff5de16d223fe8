package grpcx

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// NewServer returns a gRPC server with tracing and request id propagation installed.
// A non-nil logger adds one access log line per call. Interceptors passed in extra
// run after these.
func NewServer(logger *slog.Logger, extra ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{UnaryServerRequestIDInterceptor()}
	if logger != nil {
		interceptors = append(interceptors, UnaryServerLoggingInterceptor(logger))
	}
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
	return grpc.NewServer(append(opts, extra...)...)
}
