// Package grpc exposes the gate's gRPC surface: the standard grpc.health.v1
// service plus server reflection, instrumented with the tracing and metrics
// interceptors. HealthClient is the matching client used by the CLI.
//
// Example Usage:
//
//	srv := grpc.NewServer(logger, tracer, metrics)
//	go srv.Run(ctx, lis)
//
//	client, err := grpc.NewHealthClient("localhost:9090", nil)
//	status, err := client.Check(ctx, grpc.ServiceName)
package grpc
