package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const requestIDHeader = "X-Request-Id"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// writeResult stamps the envelope with the request id before writing it.
func writeResult[T any](w http.ResponseWriter, r *http.Request, status int, res Result[T]) {
	res.RequestID = r.Header.Get(requestIDHeader)
	writeJSON(w, status, res)
}

// requestLogger assigns a request id (kept from the client when present), puts a logger
// tagged with it on the request context and logs one line per request.
func requestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
				r.Header.Set(requestIDHeader, reqID)
			}
			w.Header().Set(requestIDHeader, reqID)
			r = r.WithContext(logger.WithRequestID(r.Context(), base, reqID))

			// captured before the tenant rewrite changes the path
			path := r.URL.Path
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			logger.FromContext(r.Context(), base).Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("host", r.Host),
				zap.String("path", path),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
