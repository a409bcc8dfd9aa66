package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/freekieb7/neurovault-users/internal/web/response"
)

type templateKey struct{}

// WithTemplate overrides the template a handler renders.
func WithTemplate(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, templateKey{}, name)
}

// TemplateName returns the override set by WithTemplate, or fallback.
func TemplateName(ctx context.Context, fallback string) string {
	if name, ok := ctx.Value(templateKey{}).(string); ok && name != "" {
		return name
	}
	return fallback
}

// IsAjax reports whether the request was sent by a script expecting JSON.
func IsAjax(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}

	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}
	first, _, _ := strings.Cut(accept, ",")
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(first))
	return err == nil && mediaType == "application/json"
}

// AcceptsAjax renders templateName instead of the full page for async
// requests and wraps whatever the handler produced in a JSON envelope.
// Other requests pass through untouched.
func AcceptsAjax(templateName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAjax(r) {
				next.ServeHTTP(w, r)
				return
			}

			capture := newCaptureWriter()
			next.ServeHTTP(capture, r.WithContext(WithTemplate(r.Context(), templateName)))

			for key, values := range capture.header {
				switch http.CanonicalHeaderKey(key) {
				case "Location", "Content-Type", "Content-Length":
					continue
				}
				for _, v := range values {
					w.Header().Add(key, v)
				}
			}

			logger.DebugContext(r.Context(), "Translated async response", "path", r.URL.Path, "status", capture.status)
			response.WriteEnvelope(w, r, response.Translate(capture.status, capture.header.Get("Location"), capture.body.Bytes()))
		})
	}
}

type captureWriter struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{
		header: http.Header{},
		status: http.StatusOK,
	}
}

func (c *captureWriter) Header() http.Header {
	return c.header
}

func (c *captureWriter) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.status = status
	c.wroteHeader = true
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.body.Write(b)
}
