package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/freekieb7/neurovault-users/internal/config"
	apperrors "github.com/freekieb7/neurovault-users/internal/errors"
	"github.com/freekieb7/neurovault-users/internal/events"
	"github.com/freekieb7/neurovault-users/internal/session"
	"github.com/freekieb7/neurovault-users/internal/web/middleware"
	"github.com/google/uuid"
)

const (
	routeProfile      = "/accounts/profile"
	routeTokens       = "/accounts/tokens"
	routeApplications = "/accounts/applications"
	routeConnections  = "/accounts/connections"
)

// Base carries what every page handler needs.
type Base struct {
	Config       *config.Config
	Logger       *slog.Logger
	SessionStore session.Repository
	Renderer     *Renderer
	Events       events.Publisher
}

func NewBase(cfg *config.Config, logger *slog.Logger, sessionStore session.Repository, renderer *Renderer, publisher events.Publisher) Base {
	return Base{
		Config:       cfg,
		Logger:       logger,
		SessionStore: sessionStore,
		Renderer:     renderer,
		Events:       publisher,
	}
}

func (b *Base) publicChain() func(http.Handler) http.Handler {
	return middleware.Chain(
		middleware.SecurityHeadersWithConfig(middleware.SecurityHeadersFromConfig(
			b.Config.Security.EnableHSTS,
			b.Config.Security.HSTSMaxAge,
			b.Config.Security.HSTSIncludeSubdomains,
			b.Config.Security.ContentSecurityPolicy,
			b.Config.Security.ReferrerPolicy,
			b.Config.Security.PermissionsPolicy,
		)),
		middleware.NoCache(),
		middleware.Session(b.Config, b.Logger, b.SessionStore),
		middleware.CSRF(b.Logger, b.SessionStore),
	)
}

func (b *Base) protectedChain() func(http.Handler) http.Handler {
	return middleware.Chain(b.publicChain(), middleware.Authenticated(b.Logger))
}

func (b *Base) session(r *http.Request) session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

func (b *Base) userID(r *http.Request) uuid.UUID {
	return b.session(r).UserID
}

// render writes the named template with the common page data added. Pending
// flash messages are consumed by full page renders only; partials have no
// place to show them.
func (b *Base) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	ctx := r.Context()
	if data == nil {
		data = map[string]any{}
	}

	sess := b.session(r)
	data["CSRFToken"] = sess.CSRFToken()
	data["Authenticated"] = sess.IsAuthenticated()
	data["Path"] = r.URL.Path

	if !middleware.IsAjax(r) {
		if flashes := session.PopFlashes(&sess); len(flashes) > 0 {
			data["Flashes"] = flashes
			if _, err := b.SessionStore.SaveSession(ctx, sess); err != nil {
				b.Logger.WarnContext(ctx, "Failed to clear flash messages", "error", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := b.Renderer.Render(&buf, name, data); err != nil {
		b.Logger.ErrorContext(ctx, "Failed to render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirectWithFlash stores message for the next page and redirects there.
func (b *Base) redirectWithFlash(w http.ResponseWriter, r *http.Request, message, target string) {
	sess := b.session(r)
	session.AddFlash(&sess, message)
	if _, err := b.SessionStore.SaveSession(r.Context(), sess); err != nil {
		b.Logger.WarnContext(r.Context(), "Failed to store flash message", "error", err)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (b *Base) notFound(w http.ResponseWriter, r *http.Request, message string) {
	b.render(w, r, http.StatusNotFound, "404.html", map[string]any{"Message": message})
}

// serverError answers with the status carried by err, 500 unless it is an
// AppError that says otherwise. An unavailable cache is logged as a warning.
func (b *Base) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.GetHTTPCode(err)
	level := slog.LevelError
	if apperrors.IsType(err, apperrors.CodeCacheUnavailable) {
		level = slog.LevelWarn
	}
	b.Logger.Log(r.Context(), level, msg, "error", err, "path", r.URL.Path, "status", status)
	http.Error(w, http.StatusText(status), status)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// pathID parses the {id} wildcard. A malformed id is reported as missing.
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

// safeNext returns next when it is a path on this site, else fallback.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
