package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/freekieb7/neurovault-users/internal/session"
	"github.com/freekieb7/neurovault-users/internal/util"
)

const CSRFHeader = "X-CSRF-Token"

// CSRF issues a per-session token on safe requests and checks it on unsafe
// ones. The token is read from the csrf_token form field or the X-CSRF-Token header.
func CSRF(logger *slog.Logger, sessionStore session.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				logger.ErrorContext(r.Context(), "Session not found in context")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if sess.CSRFToken() == "" {
					csrfToken, err := util.GenerateRandomString(32)
					if err != nil {
						logger.ErrorContext(r.Context(), "Failed to generate CSRF token", "error", err)
						w.WriteHeader(http.StatusInternalServerError)
						return
					}

					if sess.Data == nil {
						sess.Data = map[string]any{}
					}
					sess.Data[session.CSRFKey] = csrfToken
					sess, err = sessionStore.SaveSession(r.Context(), sess)
					if err != nil {
						logger.ErrorContext(r.Context(), "Failed to save session with CSRF token", "error", err)
						w.WriteHeader(http.StatusInternalServerError)
						return
					}
					r = r.WithContext(session.WithSession(r.Context(), sess))
				}
				next.ServeHTTP(w, r)
			case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
				if err := r.ParseForm(); err != nil {
					logger.WarnContext(r.Context(), "Failed to parse form", "error", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}

				received := r.PostFormValue("csrf_token")
				if received == "" {
					received = r.Header.Get(CSRFHeader)
				}

				expected := sess.CSRFToken()
				if received == "" || expected == "" || subtle.ConstantTimeCompare([]byte(received), []byte(expected)) != 1 {
					logger.WarnContext(r.Context(), "CSRF validation failed", "path", r.URL.Path, "method", r.Method)
					w.WriteHeader(http.StatusForbidden)
					return
				}

				next.ServeHTTP(w, r)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		})
	}
}
