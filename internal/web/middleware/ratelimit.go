package middleware

import (
	"log/slog"
	"net/http"

	"github.com/freekieb7/neurovault-users/internal/config"
	"github.com/go-chi/httprate"
)

// RateLimitPost limits form submissions per client IP. Page views are not counted.
func RateLimitPost(cfg config.RateLimit, requests int, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled || requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := httprate.Limit(
		requests,
		cfg.WindowDuration,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.WarnContext(r.Context(), "Rate limit exceeded", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
