package trace

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ResponseHeader carries the request's trace ID back to HTTP callers.
const ResponseHeader = "X-Trace-ID"

// Middleware continues the caller's trace, preferring a W3C traceparent
// header over x-trace-id, and echoes the trace ID in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := fromHeaders(r.Header)
		w.Header().Set(ResponseHeader, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

func fromHeaders(h http.Header) Context {
	if traceID, parent, ok := ParseTraceparent(h.Get(TraceparentKey)); ok {
		return Continue(traceID, parent)
	}
	return Continue(h.Get(TraceIDKey), h.Get(SpanIDKey))
}

// ParseTraceparent splits a version-00 traceparent header
// ("00-<trace id>-<parent id>-<flags>").
func ParseTraceparent(v string) (traceID, parentID string, ok bool) {
	parts := strings.Split(v, "-")
	if len(parts) != 4 || parts[0] != "00" || len(parts[3]) != 2 {
		return "", "", false
	}
	if !ValidID(parts[1], traceIDBytes) || !ValidID(parts[2], spanIDBytes) {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// ExtractFromJSON continues the trace named by a message's trace_id field.
// It reports false, with a new trace, when the field is missing or malformed.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || !ValidID(msg.TraceID, traceIDBytes) {
		return New(), false
	}
	return Continue(msg.TraceID, ""), true
}
