package grpc_control

import (
	"context"
	"fmt"
	"net"
	"time"

	"price-stream/src/logger"

	"google.golang.org/grpc"
)

// NewServer builds a grpc.Server with the control service registered and
// every call logged.
func NewServer(svc SessionControlServer, log *logger.Logger) *grpc.Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(log)))
	RegisterSessionControlServer(s, svc)
	return s
}

func loggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("gRPC %s took %s (err=%v)", info.FullMethod, time.Since(start), err)
		return resp, err
	}
}

// -----------------------------------------------------------------------------

// Serve listens on addr and serves until ctx ends, then stops gracefully.
func Serve(ctx context.Context, addr string, s *grpc.Server, log *logger.Logger) error {
	if log == nil {
		log = logger.NewNop()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", addr, err)
	}
	log.Info("gRPC control server listening on %s", lis.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(lis) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Stopping gRPC control server")
		s.GracefulStop()
		<-errCh
		return nil
	}
}
