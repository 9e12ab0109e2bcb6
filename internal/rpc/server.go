package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/tools"
)

// #region server
// Server adapts a tool registry to ToolServiceServer.
type Server struct {
	registry *tools.Registry
	logger   *zap.Logger
}

// NewServer wraps registry.
func NewServer(registry *tools.Registry, logger *zap.Logger) *Server {
	return &Server{registry: registry, logger: logging.OrNop(logger)}
}

// Invoke runs one tool call.
func (s *Server) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	name := fields["tool"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "tool is required")
	}
	var args map[string]any
	if a := fields["arguments"].GetStructValue(); a != nil {
		args = a.AsMap()
	}

	out, err := s.registry.Call(ctx, name, args)
	if err != nil {
		return nil, toStatus(err)
	}
	result, err := toValue(out)
	if err != nil {
		s.logger.Error("encode tool result", zap.String("tool", name), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"tool":   structpb.NewStringValue(name),
		"result": result,
	}}, nil
}

// List describes every registered tool.
func (s *Server) List(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	list := make([]any, 0)
	for _, t := range s.registry.List() {
		params := make([]any, 0, len(t.Params))
		for _, p := range t.Params {
			params = append(params, map[string]any{
				"name":     p.Name,
				"kind":     string(p.Kind),
				"required": p.Required,
			})
		}
		list = append(list, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"params":      params,
		})
	}
	out, err := structpb.NewStruct(map[string]any{"tools": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode tools: %v", err)
	}
	return out, nil
}

// #endregion server

// #region serve
// NewGRPCServer builds a grpc.Server with the tool service and request logging.
func NewGRPCServer(registry *tools.Registry, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	logger = logging.OrNop(logger)
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(logUnary(logger))}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterToolServiceServer(gs, NewServer(registry, logger))
	return gs
}

// Serve runs gs on lis until ctx is done, then stops gracefully.
func Serve(ctx context.Context, gs *grpc.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case <-ctx.Done():
		gs.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	}
}

func logUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("rpc",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("elapsed", time.Since(start)),
		)
		return resp, err
	}
}

// #endregion serve

// #region convert
var kindCodes = map[apperr.Kind]codes.Code{
	apperr.KindValidation: codes.InvalidArgument,
	apperr.KindNotFound:   codes.NotFound,
	apperr.KindConflict:   codes.AlreadyExists,
	apperr.KindPolicy:     codes.FailedPrecondition,
	apperr.KindDependency: codes.Unavailable,
	apperr.KindInternal:   codes.Internal,
}

func toStatus(err error) error {
	code, ok := kindCodes[apperr.KindOf(err)]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// toValue converts a tool payload to a protobuf value via its JSON form.
func toValue(v any) (*structpb.Value, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

// #endregion convert
