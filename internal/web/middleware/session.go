package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/freekieb7/neurovault-users/internal/config"
	"github.com/freekieb7/neurovault-users/internal/session"
)

// Session loads the session named by the cookie, or starts a new one, and
// puts it in the request context.
func Session(cfg *config.Config, logger *slog.Logger, sessionStore session.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess session.Session

			sessionCookie, err := r.Cookie(session.CookieName)
			if err == nil {
				sess, err = sessionStore.GetSessionByToken(r.Context(), sessionCookie.Value)
				if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
					logger.ErrorContext(r.Context(), "Failed to get session by token", "error", err)
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
			}

			if sess.Token == "" {
				// No cookie, or the session expired
				sess, err = sessionStore.NewSession()
				if err != nil {
					logger.ErrorContext(r.Context(), "Failed to create new session", "error", err)
					w.WriteHeader(http.StatusInternalServerError)
					return
				}

				sess, err = sessionStore.SaveSession(r.Context(), sess)
				if err != nil {
					logger.ErrorContext(r.Context(), "Failed to save new session", "error", err)
					w.WriteHeader(http.StatusInternalServerError)
					return
				}

				SetSessionCookie(w, cfg, sess)
			}

			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, cfg *config.Config, sess session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   cfg.Server.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, cfg *config.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Server.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
