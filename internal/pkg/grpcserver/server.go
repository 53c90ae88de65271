package grpcserver

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server hosts the gRPC health service. Every service starts NOT_SERVING
// until its status is reported.
type Server struct {
	addr   string
	Server *grpc.Server
	Health *health.Server
}

func New(addr string, opts ...grpc.ServerOption) *Server {
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return &Server{
		addr:   addr,
		Server: s,
		Health: hs,
	}
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve accepts connections on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	return s.Server.Serve(lis)
}

func (s *Server) Stop() {
	s.Health.Shutdown()
	// closes the listeners too
	s.Server.GracefulStop()
}
