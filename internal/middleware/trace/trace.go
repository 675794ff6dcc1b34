// Package trace assigns request IDs and logs request completion.
package trace

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cantine/internal/log"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

type Metrics struct {
	TotalRequests  int64 `json:"total"`
	ClientErrors   int64 `json:"clientErrors"`
	ServerErrors   int64 `json:"serverErrors"`
	LastDurationUs int64 `json:"lastDurationUs"`
}

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.StructuredLogger

	total, clientErrs, serverErrs, lastUs atomic.Int64
}

// NewMiddleware builds the tracer. clientIP may be nil.
func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Middleware{
		clientIP: clientIP,
		logger:   log.NewStructuredLogger(logger.WithComponent(log.ComponentTrace)),
	}
}

// Middleware tags the request with an ID, echoes it in the response and logs
// the outcome. A UUID sent by the client is reused.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id, ok := incomingRequestID(r)
		if !ok {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.observe(rec.status(), elapsed)

		ip := ""
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}
		m.logger.LogHTTPEnd(r.Context(), r, rec.status(), elapsed.Milliseconds(), ip)
	})
}

func (m *Middleware) observe(status int, elapsed time.Duration) {
	m.total.Add(1)
	m.lastUs.Store(elapsed.Microseconds())
	switch {
	case status >= 500:
		m.serverErrs.Add(1)
	case status >= 400:
		m.clientErrs.Add(1)
	}
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:  m.total.Load(),
		ClientErrors:   m.clientErrs.Load(),
		ServerErrors:   m.serverErrs.Load(),
		LastDurationUs: m.lastUs.Load(),
	}
}

func incomingRequestID(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get(HeaderRequestID))
	if raw == "" || len(raw) > 64 {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// GetRequestID returns the ID the middleware stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID is GetRequestID for a request, in the shape
// log.RequestIDMiddleware expects.
func RequestID(r *http.Request) string {
	return GetRequestID(r.Context())
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code == 0 {
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.code = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}
