package trace

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryClientInterceptor injects trace context into outgoing gRPC calls.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = injectMetadata(ctx)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// UnaryServerInterceptor extracts trace context from incoming gRPC metadata.
// The caller's span becomes the parent of the server span.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(WithContext(ctx, extractMetadata(ctx)), req)
	}
}

// LoggingUnaryServerInterceptor logs every call with its status code and duration.
func LoggingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		log := Logger(ctx).With("method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
		if err != nil {
			log.Warn("rpc failed", "error", err)
		} else {
			log.Debug("rpc handled")
		}
		return resp, err
	}
}

// injectMetadata adds trace context to outgoing gRPC metadata.
func injectMetadata(ctx context.Context) context.Context {
	tc, ok := FromContext(ctx)
	if !ok {
		tc = New()
		ctx = WithContext(ctx, tc)
	}

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}

	for k, v := range tc.ToMap() {
		md.Set(k, v)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// extractMetadata reads trace context from incoming gRPC metadata, accepting
// a traceparent entry as well as the x-trace-id pair.
func extractMetadata(ctx context.Context) Context {
	md, _ := metadata.FromIncomingContext(ctx)
	if vals := md.Get(TraceparentKey); len(vals) > 0 {
		if traceID, parent, ok := ParseTraceparent(vals[0]); ok {
			return Continue(traceID, parent)
		}
	}
	m := make(map[string]string, 2)
	for _, key := range []string{TraceIDKey, SpanIDKey} {
		if vals := md.Get(key); len(vals) > 0 {
			m[key] = vals[0]
		}
	}
	return FromMap(m)
}
