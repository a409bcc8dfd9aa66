package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// MetricsCollector receives one record per finished request.
type MetricsCollector interface {
	RecordRequest(ctx context.Context, record RequestRecord)
}

type RequestRecord struct {
	RequestID  string
	Method     string
	Path       string
	StatusCode int
	Size       int
	Duration   time.Duration
}

// LogMetricsCollector implements MetricsCollector using structured logging
type LogMetricsCollector struct {
	logger        *slog.Logger
	slowThreshold time.Duration
}

func NewLogMetricsCollector(logger *slog.Logger, slowThreshold time.Duration) *LogMetricsCollector {
	if slowThreshold <= 0 {
		slowThreshold = time.Second
	}
	return &LogMetricsCollector{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (c *LogMetricsCollector) RecordRequest(ctx context.Context, record RequestRecord) {
	level := slog.LevelInfo
	switch {
	case record.StatusCode >= 500:
		level = slog.LevelError
	case record.Duration > c.slowThreshold:
		level = slog.LevelWarn
	}

	c.logger.Log(ctx, level, "HTTP request completed",
		slog.String("request_id", record.RequestID),
		slog.String("method", record.Method),
		slog.String("path", record.Path),
		slog.Int("status_code", record.StatusCode),
		slog.Int("response_size", record.Size),
		slog.Float64("duration_ms", float64(record.Duration.Nanoseconds())/1e6),
		slog.String("outcome", categorizeStatus(record.StatusCode)))
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// MetricsMiddleware tags the request with an ID and reports it to collector once served.
func MetricsMiddleware(collector MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			wrapper := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapper, r)

			collector.RecordRequest(r.Context(), RequestRecord{
				RequestID:  requestID,
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: wrapper.statusCode,
				Size:       wrapper.size,
				Duration:   time.Since(start),
			})
		})
	}
}

func categorizeStatus(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	case statusCode >= 300:
		return "redirect"
	default:
		return "success"
	}
}

// RequestSizeMiddleware limits request body size.
func RequestSizeMiddleware(maxSize int64, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				logger.WarnContext(r.Context(), "Request body too large",
					slog.Int64("content_length", r.ContentLength),
					slog.Int64("max_size", maxSize),
					slog.String("path", r.URL.Path))

				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			next.ServeHTTP(w, r)
		})
	}
}
