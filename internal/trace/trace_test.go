package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	callerTrace  = "4bf92f3577b34da6a3ce929d0e0e4736"
	callerSpan   = "00f067aa0ba902b7"
	callerParent = "b7ad6b7169203331"
)

func TestNewContext(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("len(TraceID) = %d, want 32", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("len(SpanID) = %d, want 16", len(tc.SpanID))
	}
	if tc.ParentSpanID != "" {
		t.Error("new context should not have parent span ID")
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newID(traceIDBytes)
		if seen[id] {
			t.Fatal("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if len(tc.TraceID) != 32 {
		t.Error("should create trace ID")
	}
	if _, again := EnsureContext(ctx); again.TraceID != tc.TraceID {
		t.Error("should return existing trace")
	}
}

func TestMapRoundTrip(t *testing.T) {
	caller := Context{TraceID: callerTrace, SpanID: callerSpan, ParentSpanID: callerParent}
	m := caller.ToMap()
	if m[ParentSpanIDKey] != callerParent {
		t.Errorf("ToMap parent = %q, want %s", m[ParentSpanIDKey], callerParent)
	}

	callee := FromMap(m)
	if callee.TraceID != callerTrace {
		t.Errorf("TraceID = %q, want %s", callee.TraceID, callerTrace)
	}
	if callee.ParentSpanID != callerSpan {
		t.Errorf("ParentSpanID = %q, want caller's span", callee.ParentSpanID)
	}
	if callee.SpanID == callerSpan || len(callee.SpanID) != 16 {
		t.Errorf("SpanID = %q, want a fresh span", callee.SpanID)
	}

	if fresh := FromMap(nil); len(fresh.TraceID) != 32 {
		t.Error("FromMap should generate a trace ID when missing")
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		n    int
		want bool
	}{
		{callerTrace, traceIDBytes, true},
		{callerSpan, spanIDBytes, true},
		{callerSpan, traceIDBytes, false},
		{strings.ToUpper(callerTrace), traceIDBytes, false},
		{strings.Repeat("0", 32), traceIDBytes, false},
		{"trace-1\nforged=1", traceIDBytes, false},
		{"", spanIDBytes, false},
	}

	for _, tt := range tests {
		if got := ValidID(tt.id, tt.n); got != tt.want {
			t.Errorf("ValidID(%q, %d) = %v, want %v", tt.id, tt.n, got, tt.want)
		}
	}
}

func TestContinue(t *testing.T) {
	tc := Continue(callerTrace, callerSpan)
	if tc.TraceID != callerTrace || tc.ParentSpanID != callerSpan {
		t.Errorf("Continue = %+v, want trace %s under %s", tc, callerTrace, callerSpan)
	}

	tc = Continue(callerTrace, "bogus")
	if tc.TraceID != callerTrace || tc.ParentSpanID != "" {
		t.Errorf("Continue with bad parent = %+v, want parent dropped", tc)
	}

	tc = Continue("bogus", callerSpan)
	if tc.TraceID == "bogus" || !ValidID(tc.TraceID, traceIDBytes) || tc.ParentSpanID != "" {
		t.Errorf("Continue with bad trace = %+v, want a new trace", tc)
	}
}

func TestParseTraceparent(t *testing.T) {
	tests := []struct {
		in     string
		ok     bool
		trace  string
		parent string
	}{
		{"00-" + callerTrace + "-" + callerSpan + "-01", true, callerTrace, callerSpan},
		{"01-" + callerTrace + "-" + callerSpan + "-01", false, "", ""},
		{"00-" + callerTrace + "-" + callerSpan, false, "", ""},
		{"00-" + strings.Repeat("0", 32) + "-" + callerSpan + "-01", false, "", ""},
		{"", false, "", ""},
	}

	for _, tt := range tests {
		traceID, parent, ok := ParseTraceparent(tt.in)
		if ok != tt.ok || traceID != tt.trace || parent != tt.parent {
			t.Errorf("ParseTraceparent(%q) = %q, %q, %v, want %q, %q, %v", tt.in, traceID, parent, ok, tt.trace, tt.parent, tt.ok)
		}
	}
}

func TestSpanNested(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "hash")
	_, child := StartSpan(ctx, "decode")
	child.SetAttr("format", "png")
	child.End()

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.Ctx.ParentSpanID != parent.Ctx.SpanID {
		t.Error("child's parent should be parent's span")
	}
	if child.EndTime.IsZero() {
		t.Error("End should record the end time")
	}
	if child.Attrs["format"] != "png" {
		t.Errorf("Attrs[format] = %v, want png", child.Attrs["format"])
	}
	if parent.Duration() != 0 {
		t.Error("unfinished span should report zero duration")
	}
}

func TestUnaryServerInterceptorAdoptsCaller(t *testing.T) {
	md := metadata.Pairs(TraceIDKey, callerTrace, SpanIDKey, callerSpan)
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var got Context
	handler := func(ctx context.Context, req any) (any, error) {
		got, _ = FromContext(ctx)
		return nil, nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/impressionhash.Hasher/ImpressionHash"}
	if _, err := UnaryServerInterceptor()(ctx, nil, info, handler); err != nil {
		t.Fatalf("interceptor error: %v", err)
	}

	if got.TraceID != callerTrace {
		t.Errorf("TraceID = %q, want %s", got.TraceID, callerTrace)
	}
	if got.ParentSpanID != callerSpan {
		t.Errorf("ParentSpanID = %q, want %s", got.ParentSpanID, callerSpan)
	}
}

func TestUnaryServerInterceptorWithoutMetadata(t *testing.T) {
	var ok bool
	handler := func(ctx context.Context, req any) (any, error) {
		_, ok = FromContext(ctx)
		return nil, nil
	}
	_, _ = UnaryServerInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	if !ok {
		t.Error("handler should always see a trace context")
	}
}

func TestInjectMetadata(t *testing.T) {
	tc := New()
	ctx := injectMetadata(WithContext(context.Background(), tc))

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("outgoing metadata missing")
	}
	if got := md.Get(TraceIDKey); len(got) != 1 || got[0] != tc.TraceID {
		t.Errorf("metadata trace = %v, want %s", got, tc.TraceID)
	}
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		trace  string
		parent string
	}{
		{"traceparent", map[string]string{TraceparentKey: "00-" + callerTrace + "-" + callerSpan + "-01", TraceIDKey: "ignored"}, callerTrace, callerSpan},
		{"x-trace-id", map[string]string{TraceIDKey: callerTrace, SpanIDKey: callerSpan}, callerTrace, callerSpan},
		{"malformed", map[string]string{TraceIDKey: "from-client"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Context
			h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = FromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/hash", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tt.trace != "" && got.TraceID != tt.trace {
				t.Errorf("TraceID = %q, want %s", got.TraceID, tt.trace)
			}
			if !ValidID(got.TraceID, traceIDBytes) {
				t.Errorf("TraceID = %q, want a valid ID", got.TraceID)
			}
			if got.ParentSpanID != tt.parent {
				t.Errorf("ParentSpanID = %q, want %q", got.ParentSpanID, tt.parent)
			}
			if rec.Header().Get(ResponseHeader) != got.TraceID {
				t.Errorf("%s = %q, want %s", ResponseHeader, rec.Header().Get(ResponseHeader), got.TraceID)
			}
		})
	}
}

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"similarity","trace_id":"` + callerTrace + `"}`))
	if !ok || tc.TraceID != callerTrace {
		t.Errorf("ExtractFromJSON = %+v, %v, want %s", tc, ok, callerTrace)
	}
	for _, msg := range []string{`{"type":"similarity"}`, `{"trace_id":"t1"}`, `not json`} {
		if _, ok := ExtractFromJSON([]byte(msg)); ok {
			t.Errorf("ExtractFromJSON(%s) reported a trace", msg)
		}
	}
}
