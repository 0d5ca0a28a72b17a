package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/GriffinCanCode/inappgate/internal/infrastructure/tracing"
)

// HealthClient checks a gate's gRPC health endpoint.
type HealthClient struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
	addr   string
}

// NewHealthClient creates a client for addr. tracer may be nil.
func NewHealthClient(addr string, tracer *tracing.Tracer) (*HealthClient, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
	}
	if tracer != nil {
		opts = append(opts, grpc.WithUnaryInterceptor(tracing.GRPCClientInterceptor(tracer)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}

	return &HealthClient{
		conn:   conn,
		client: healthpb.NewHealthClient(conn),
		addr:   addr,
	}, nil
}

// Check returns the serving status of service ("" for the whole server).
func (c *HealthClient) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check %s: %w", c.addr, err)
	}
	return resp.GetStatus(), nil
}

// Close closes the connection
func (c *HealthClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
