// Package trace carries W3C-style trace and span IDs through hashing requests,
// across gRPC metadata, HTTP headers and WebSocket messages.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"
)

// Metadata and header keys used for propagation.
const (
	TraceIDKey      = "x-trace-id"
	SpanIDKey       = "x-span-id"
	ParentSpanIDKey = "x-parent-span-id"
	TraceparentKey  = "traceparent"
)

// ID sizes in bytes; IDs travel as lowercase hex.
const (
	traceIDBytes = 16
	spanIDBytes  = 8
)

type ctxKey struct{}

// Context holds trace identifiers for a single span.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// New starts a trace.
func New() Context {
	return Context{TraceID: newID(traceIDBytes), SpanID: newID(spanIDBytes)}
}

// Continue opens a span in a trace begun by a caller. A malformed trace ID
// starts a new trace; a malformed parent is dropped.
func Continue(traceID, parentSpanID string) Context {
	if !ValidID(traceID, traceIDBytes) {
		return New()
	}
	tc := Context{TraceID: traceID, SpanID: newID(spanIDBytes)}
	if ValidID(parentSpanID, spanIDBytes) {
		tc.ParentSpanID = parentSpanID
	}
	return tc
}

// child opens a span below c.
func (c Context) child() Context {
	if c.TraceID == "" {
		return New()
	}
	return Context{TraceID: c.TraceID, SpanID: newID(spanIDBytes), ParentSpanID: c.SpanID}
}

// ValidID reports whether id is n bytes of lowercase hex and not all zeros.
func ValidID(id string, n int) bool {
	if len(id) != 2*n || strings.Trim(id, "0") == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func newID(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext extracts trace context from context.Context.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext injects trace context into context.Context.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// EnsureContext returns existing trace context or creates a new one.
func EnsureContext(ctx context.Context) (context.Context, Context) {
	if tc, ok := FromContext(ctx); ok {
		return ctx, tc
	}
	tc := New()
	return WithContext(ctx, tc), tc
}

// ToMap exports context as string map for gRPC metadata.
func (c Context) ToMap() map[string]string {
	m := map[string]string{
		TraceIDKey: c.TraceID,
		SpanIDKey:  c.SpanID,
	}
	if c.ParentSpanID != "" {
		m[ParentSpanIDKey] = c.ParentSpanID
	}
	return m
}

// FromMap continues the trace described by m. The caller's span becomes the parent.
func FromMap(m map[string]string) Context {
	return Continue(m[TraceIDKey], m[SpanIDKey])
}

// Span is a timed step of hashing work.
type Span struct {
	Name      string
	Ctx       Context
	StartTime time.Time
	EndTime   time.Time
	Attrs     map[string]any
}

// StartSpan begins a span below the one in ctx, or a new trace if there is none.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent, _ := FromContext(ctx)
	s := &Span{
		Name:      name,
		Ctx:       parent.child(),
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	return WithContext(ctx, s.Ctx), s
}

// End marks the span as complete.
func (s *Span) End() {
	s.EndTime = time.Now()
}

// SetAttr sets a span attribute.
func (s *Span) SetAttr(key string, val any) {
	s.Attrs[key] = val
}

// Duration returns span duration, or zero before End.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// LogValue implements slog.LogValuer. Trace IDs are left to Logger.
func (s *Span) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 2+len(s.Attrs))
	attrs = append(attrs, slog.String("name", s.Name), slog.Duration("duration", s.Duration()))
	for k, v := range s.Attrs {
		attrs = append(attrs, slog.Any(k, v))
	}
	return slog.GroupValue(attrs...)
}

// Logger returns the default logger tagged with the trace in ctx.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	args := []any{"trace_id", tc.TraceID, "span_id", tc.SpanID}
	if tc.ParentSpanID != "" {
		args = append(args, "parent_span_id", tc.ParentSpanID)
	}
	return slog.Default().With(args...)
}
