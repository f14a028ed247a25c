package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"price-stream/src/helpers"
	"price-stream/src/interfaces"
	"price-stream/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "pricestream.control.v1.SessionControl"

// SessionControlServer is the server API for the SessionControl service.
// Requests are google.protobuf.Empty; replies are google.protobuf.Struct
// holding the same JSON the status server returns.
type SessionControlServer interface {
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Start(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reconnect(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ControlService implements SessionControlServer over a session controller.
type ControlService struct {
	Session interfaces.ISessionController
	Logger  *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(session interfaces.ISessionController, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ControlService{Session: session, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetSnapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap, err := s.Session.Snapshot(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(snap)
}

func (s *ControlService) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.control(ctx, "start", s.Session.Start)
}

func (s *ControlService) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.control(ctx, "stop", s.Session.Stop)
}

func (s *ControlService) Reconnect(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.control(ctx, "reconnect", s.Session.Reconnect)
}

func (s *ControlService) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.control(ctx, "reset", s.Session.Reset)
}

// -----------------------------------------------------------------------------

func (s *ControlService) control(ctx context.Context, name string, op func(context.Context) error) (*structpb.Struct, error) {
	if err := op(ctx); err != nil {
		s.Logger.Warning("gRPC: %s failed: %v", name, err)
		return nil, toStatus(err)
	}

	reply := map[string]interface{}{
		"success": true,
		"message": name + " ok",
	}
	if snap, err := s.Session.Snapshot(ctx); err == nil {
		reply["status"] = snap.Status.String()
	}
	s.Logger.Info("gRPC: %s ok", name)
	return structpb.NewStruct(reply)
}

// -----------------------------------------------------------------------------

// toStatus maps session errors onto gRPC codes.
func toStatus(err error) error {
	var resetErr *helpers.ResetError
	switch {
	case errors.Is(err, helpers.ErrResetInProgress):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, helpers.ErrSessionActive):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.As(err, &resetErr):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, helpers.ErrControllerClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// toStruct converts any JSON-encodable value into a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode reply: %v", err))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode reply: %v", err))
	}
	return structpb.NewStruct(m)
}

// -----------------------------------------------------------------------------
// Service descriptor
// -----------------------------------------------------------------------------

func unaryHandler(method string, call func(SessionControlServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SessionControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(SessionControlServer), ctx, req.(*emptypb.Empty))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// SessionControl_ServiceDesc describes the service for grpc.Server.RegisterService.
var SessionControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetSnapshot", SessionControlServer.GetSnapshot),
		unaryHandler("Start", SessionControlServer.Start),
		unaryHandler("Stop", SessionControlServer.Stop),
		unaryHandler("Reconnect", SessionControlServer.Reconnect),
		unaryHandler("Reset", SessionControlServer.Reset),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pricestream/control/v1/control.proto",
}

func RegisterSessionControlServer(s grpc.ServiceRegistrar, srv SessionControlServer) {
	s.RegisterService(&SessionControl_ServiceDesc, srv)
}
