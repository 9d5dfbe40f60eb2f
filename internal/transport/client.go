package transport

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/controller"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/monitor"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/pattern"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region client-struct
// Client calls a remote stability service.
type Client struct {
	conn *grpc.ClientConn
}
// #endregion client-struct

// #region constructor
// NewClient connects to the stability service at addr. Extra options are
// appended to the defaults (insecure credentials, JSON content subtype,
// otelgrpc stats).
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
// #endregion close

// #region calls
func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return fmt.Errorf("%s rpc: %w", method, err)
	}
	return nil
}

// CheckStability returns the remote status.
func (c *Client) CheckStability(ctx context.Context) (monitor.Status, error) {
	var out monitor.Status
	err := c.invoke(ctx, "CheckStability", &emptypb.Empty{}, &out)
	return out, err
}

// VerifyStability reports whether the remote score is at or above threshold.
func (c *Client) VerifyStability(ctx context.Context) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.invoke(ctx, "VerifyStability", &emptypb.Empty{}, out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// AdjustDimensions merges p remotely and returns the resulting dimensions.
func (c *Client) AdjustDimensions(ctx context.Context, p state.PartialDimensions) (state.Dimensions, error) {
	var out state.Dimensions
	err := c.invoke(ctx, "AdjustDimensions", &p, &out)
	return out, err
}

// EvolveSystem evolves by elapsedSeconds, or by remote wall-clock time when 0.
func (c *Client) EvolveSystem(ctx context.Context, elapsedSeconds float64) (evolution.Result, error) {
	var out evolution.Result
	err := c.invoke(ctx, "EvolveSystem", &EvolveRequest{ElapsedSeconds: elapsedSeconds}, &out)
	return out, err
}

// RecognizePattern submits a candidate.
func (c *Client) RecognizePattern(ctx context.Context, cand pattern.Candidate) (pattern.Result, error) {
	var out pattern.Result
	err := c.invoke(ctx, "RecognizePattern", &cand, &out)
	return out, err
}

// OptimizePerformance runs the named optimization remotely.
func (c *Client) OptimizePerformance(ctx context.Context, target string) (controller.Report, error) {
	var out controller.Report
	err := c.invoke(ctx, "OptimizePerformance", &OptimizeRequest{Target: target}, &out)
	return out, err
}

// EmergencyStabilize resets the remote state to baseline.
func (c *Client) EmergencyStabilize(ctx context.Context) (controller.EmergencyReport, error) {
	var out controller.EmergencyReport
	err := c.invoke(ctx, "EmergencyStabilize", &emptypb.Empty{}, &out)
	return out, err
}

// Health returns the serving status of the stability service.
func (c *Client) Health(ctx context.Context) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	resp, err := grpc_health_v1.NewHealthClient(c.conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, fmt.Errorf("health rpc: %w", err)
	}
	return resp.GetStatus(), nil
}
// #endregion calls
