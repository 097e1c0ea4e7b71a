// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/RXminuS/impression-hash/internal/config"
	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/hasher"
	"github.com/RXminuS/impression-hash/internal/syncx"
	"github.com/RXminuS/impression-hash/internal/trace"
	"github.com/RXminuS/impression-hash/pkg/impression"
)

// Message is the envelope shared by all WebSocket messages.
type Message struct {
	Type string `json:"type"`
}

// HashResponse is returned by /api/hash.
type HashResponse struct {
	Changes string `json:"changes"`
	Larger  string `json:"larger"`
	Bits    int    `json:"bits"`
}

// SimilarityRequest is accepted by /api/similarity and as a WebSocket text frame.
type SimilarityRequest struct {
	Type    string `json:"type,omitempty"`
	First   string `json:"first"`
	Second  string `json:"second"`
	TraceID string `json:"trace_id,omitempty"`
}

type SimilarityMessage struct {
	Type       string  `json:"type"`
	Similarity float64 `json:"similarity"`
	TraceID    string  `json:"trace_id,omitempty"`
}

// HashMessage answers a binary WebSocket frame. Similarity compares the frame
// with the previous frame hashed on the same connection.
type HashMessage struct {
	Type       string   `json:"type"`
	Changes    string   `json:"changes"`
	Larger     string   `json:"larger"`
	Similarity *float64 `json:"similarity,omitempty"`
	TraceID    string   `json:"trace_id,omitempty"`
}

type ErrorMessage struct {
	Type     string            `json:"type"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	limit      int
	window     time.Duration
	timestamps []time.Time
	mu         sync.Mutex
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window}
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= r.limit {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// session is the per-connection WebSocket state.
type session struct {
	limiter *rateLimiter
	prev    *impression.Fingerprint
}

type connSet = map[*websocket.Conn]*session

// Server handles HTTP and WebSocket connections.
type Server struct {
	svc   *hasher.Service
	cfg   *config.Config
	conns *syncx.RWGuard[connSet]
}

// New creates a new server.
func New(svc *hasher.Service, cfg *config.Config) *Server {
	return &Server{
		svc:   svc,
		cfg:   cfg,
		conns: syncx.NewGuard(connSet{}),
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/hash", s.handleHash)
	mux.HandleFunc("POST /api/similarity", s.handleSimilarity)
	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

// Connections returns the number of open WebSocket connections.
func (s *Server) Connections() int {
	n := 0
	s.conns.Read(func(m connSet) { n = len(m) })
	return n
}

// Close closes every open WebSocket connection.
func (s *Server) Close() {
	var conns []*websocket.Conn
	s.conns.Read(func(m connSet) {
		for c := range m {
			conns = append(conns, c)
		}
	})

	for _, c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
}

func (s *Server) handleHash(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes))
	if err != nil {
		writeError(ctx, w, bodyError(err))
		return
	}

	fp, err := s.svc.HashImage(ctx, data)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	larger, err := fp.Text(impression.Larger)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{Changes: fp.Changes(), Larger: larger, Bits: fp.Len()})
}

func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var req SimilarityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(ctx, w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "malformed similarity request"))
		return
	}

	sim, err := s.svc.Similarity(ctx, req.First, req.Second)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, SimilarityMessage{Type: TypeSimilarity, Similarity: sim})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	limit := 2*s.cfg.MaxImageBytes + MultipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(ctx, w, bodyError(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	first, err := formFile(r, "first")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	second, err := formFile(r, "second")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	cmp, err := s.svc.CompareImages(ctx, first, second)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.svc.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"hashed":      stats.Hashed,
		"compared":    stats.Compared,
		"failed":      stats.Failed,
		"connections": s.Connections(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	conn.SetReadLimit(s.cfg.MaxImageBytes)

	sess := &session{limiter: newRateLimiter(s.cfg.WSRateLimit, RateLimitWindow)}
	s.conns.Write(func(m *connSet) { (*m)[conn] = sess })
	defer s.conns.Write(func(m *connSet) { delete(*m, conn) })

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		typ, data, err := conn.Read(baseCtx)
		if err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !sess.limiter.allow(time.Now()) {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			s.reply(baseCtx, conn, ErrorMessage{Type: TypeRateLimited, Code: apperrors.CodeUnavailable.String(), Message: "rate limit exceeded"})
			continue
		}

		switch typ {
		case websocket.MessageBinary:
			ctx, _ := trace.EnsureContext(baseCtx)
			s.handleFrame(ctx, conn, sess, data)
		case websocket.MessageText:
			s.handleTextMessage(baseCtx, conn, data)
		}
	}
}

// handleFrame hashes one image frame and compares it with the previous one.
func (s *Server) handleFrame(ctx context.Context, conn *websocket.Conn, sess *session, data []byte) {
	ctx, span := trace.StartSpan(ctx, "ws_frame")
	defer span.End()

	fp, err := s.svc.HashImage(ctx, data)
	if err != nil {
		s.reply(ctx, conn, errorMessage(err))
		return
	}
	larger, _ := fp.Text(impression.Larger)

	msg := HashMessage{Type: TypeHash, Changes: fp.Changes(), Larger: larger, TraceID: span.Ctx.TraceID}
	if sess.prev != nil {
		if sim, err := fp.Similarity(sess.prev); err == nil {
			msg.Similarity = &sim
		}
	}
	sess.prev = fp
	s.reply(ctx, conn, msg)
}

func (s *Server) handleTextMessage(ctx context.Context, conn *websocket.Conn, data []byte) {
	var base Message
	if err := json.Unmarshal(data, &base); err != nil {
		s.reply(ctx, conn, errorMessage(apperrors.Wrap(err, apperrors.CodeInvalidInput, "malformed message")))
		return
	}

	switch base.Type {
	case TypeSimilarity:
		var req SimilarityRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(ctx, conn, errorMessage(apperrors.Wrap(err, apperrors.CodeInvalidInput, "malformed similarity request")))
			return
		}
		// Extract trace_id from message or create new trace context
		if tc, ok := trace.ExtractFromJSON(data); ok {
			ctx = trace.WithContext(ctx, tc)
		} else {
			ctx, _ = trace.EnsureContext(ctx)
		}
		tc, _ := trace.FromContext(ctx)

		sim, err := s.svc.Similarity(ctx, req.First, req.Second)
		if err != nil {
			s.reply(ctx, conn, errorMessage(err))
			return
		}
		s.reply(ctx, conn, SimilarityMessage{Type: TypeSimilarity, Similarity: sim, TraceID: tc.TraceID})
	default:
		s.reply(ctx, conn, errorMessage(apperrors.Newf(apperrors.CodeInvalidInput, "unknown message type %q", base.Type)))
	}
}

func (s *Server) reply(ctx context.Context, conn *websocket.Conn, msg any) {
	ctx, cancel := context.WithTimeout(ctx, WSWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		trace.Logger(ctx).Debug("websocket write error", "error", err)
	}
}

func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeInvalidInput, "missing form file %q", field)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeInvalidInput, "read form file %q", field)
	}
	return data, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Newf(apperrors.CodeImageTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
	}
	return apperrors.Wrap(err, apperrors.CodeInvalidInput, "read request body")
}

func errorMessage(err error) ErrorMessage {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, err.Error())
	}
	return ErrorMessage{Type: TypeError, Code: appErr.Code.String(), Message: appErr.Message, Metadata: appErr.Metadata}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	msg := errorMessage(err)
	status := http.StatusInternalServerError
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.HTTPStatus()
	}
	if status >= http.StatusInternalServerError {
		trace.Logger(ctx).Error("request failed", "error", err)
	} else {
		trace.Logger(ctx).Debug("request rejected", "error", err)
	}
	writeJSON(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
