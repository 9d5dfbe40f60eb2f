package transport

import (
	"context"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/controller"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/monitor"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/pattern"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region types
// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "stability.v1.StabilityService"

// EvolveRequest asks for an evolution step. Zero ElapsedSeconds evolves by
// the wall-clock time since the previous evolution.
type EvolveRequest struct {
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
}

// OptimizeRequest names the optimization target. Empty means all.
type OptimizeRequest struct {
	Target string `json:"target"`
}

// Loop is the stability surface exposed over gRPC.
type Loop interface {
	CheckStability() monitor.Status
	VerifyStability() bool
	AdjustDimensions(p state.PartialDimensions) state.Dimensions
	EvolveSystem(ctx context.Context) evolution.Result
	EvolveFor(ctx context.Context, elapsedSeconds float64) evolution.Result
	RecognizePattern(ctx context.Context, c pattern.Candidate) pattern.Result
	OptimizePerformance(ctx context.Context, target string) controller.Report
	EmergencyStabilize(ctx context.Context) controller.EmergencyReport
}

// StabilityServer is the server API of the stability service.
type StabilityServer interface {
	CheckStability(context.Context, *emptypb.Empty) (*monitor.Status, error)
	VerifyStability(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	AdjustDimensions(context.Context, *state.PartialDimensions) (*state.Dimensions, error)
	EvolveSystem(context.Context, *EvolveRequest) (*evolution.Result, error)
	RecognizePattern(context.Context, *pattern.Candidate) (*pattern.Result, error)
	OptimizePerformance(context.Context, *OptimizeRequest) (*controller.Report, error)
	EmergencyStabilize(context.Context, *emptypb.Empty) (*controller.EmergencyReport, error)
}
// #endregion types

// #region service
// Service adapts a Loop to StabilityServer.
type Service struct {
	loop Loop
}

// NewService wraps loop.
func NewService(loop Loop) *Service {
	return &Service{loop: loop}
}

func (s *Service) CheckStability(ctx context.Context, _ *emptypb.Empty) (*monitor.Status, error) {
	st := s.loop.CheckStability()
	return &st, nil
}

func (s *Service) VerifyStability(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.loop.VerifyStability()), nil
}

func (s *Service) AdjustDimensions(ctx context.Context, in *state.PartialDimensions) (*state.Dimensions, error) {
	d := s.loop.AdjustDimensions(*in)
	return &d, nil
}

func (s *Service) EvolveSystem(ctx context.Context, in *EvolveRequest) (*evolution.Result, error) {
	var res evolution.Result
	if in.ElapsedSeconds != 0 {
		res = s.loop.EvolveFor(ctx, in.ElapsedSeconds)
	} else {
		res = s.loop.EvolveSystem(ctx)
	}
	return &res, nil
}

func (s *Service) RecognizePattern(ctx context.Context, in *pattern.Candidate) (*pattern.Result, error) {
	res := s.loop.RecognizePattern(ctx, *in)
	return &res, nil
}

func (s *Service) OptimizePerformance(ctx context.Context, in *OptimizeRequest) (*controller.Report, error) {
	report := s.loop.OptimizePerformance(ctx, in.Target)
	return &report, nil
}

func (s *Service) EmergencyStabilize(ctx context.Context, _ *emptypb.Empty) (*controller.EmergencyReport, error) {
	report := s.loop.EmergencyStabilize(ctx)
	return &report, nil
}
// #endregion service

// #region service-desc
// ServiceDesc describes the stability service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CheckStability", StabilityServer.CheckStability),
		unary("VerifyStability", StabilityServer.VerifyStability),
		unary("AdjustDimensions", StabilityServer.AdjustDimensions),
		unary("EvolveSystem", StabilityServer.EvolveSystem),
		unary("RecognizePattern", StabilityServer.RecognizePattern),
		unary("OptimizePerformance", StabilityServer.OptimizePerformance),
		unary("EmergencyStabilize", StabilityServer.EmergencyStabilize),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stability/v1/stability",
}

// RegisterStabilityServer registers srv on r.
func RegisterStabilityServer(r grpc.ServiceRegistrar, srv StabilityServer) {
	r.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the method handler for one request/response pair.
func unary[Req, Resp any](method string, call func(StabilityServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StabilityServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StabilityServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
// #endregion service-desc

// #region interceptor
// loggingInterceptor logs each call at debug level, failures at warn.
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("took", time.Since(start)),
			zap.Stringer("code", status.Code(err)),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}
// #endregion interceptor
