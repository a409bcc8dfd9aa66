package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/freekieb7/neurovault-users/internal/session"
)

const LoginPath = "/accounts/login"

// LoginURL returns the login page that sends the user back to next afterwards.
func LoginURL(next string) string {
	return LoginPath + "?next=" + url.QueryEscape(next)
}

func Authenticated(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok || !sess.IsAuthenticated() {
				logger.DebugContext(r.Context(), "User not logged in", "path", r.URL.Path)
				http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
