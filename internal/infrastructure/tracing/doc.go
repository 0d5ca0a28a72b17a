/*
Package tracing provides lightweight request tracing for the gate.

# Overview

Every HTTP request and gRPC call gets a span. Trace context propagates via
the X-Trace-ID and X-Span-ID headers (x-trace-id / x-span-id metadata for
gRPC) and is echoed on responses so an operator can correlate a visitor's
redirect chain in the logs. Identifiers are prefixed ULIDs from the id
package.

Finished spans are buffered and logged by a single collector goroutine.
Close drains the buffer on shutdown.

# Usage

	tracer := tracing.New("inappgate", logger.Logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	server := grpc.NewServer(
		grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)),
		grpc.StreamInterceptor(tracing.GRPCStreamInterceptor(tracer)),
	)
*/
package tracing
