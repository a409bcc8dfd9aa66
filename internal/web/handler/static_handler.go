package handler

import (
	"net/http"

	"github.com/freekieb7/neurovault-users/internal/web/middleware"
	"github.com/freekieb7/neurovault-users/web"
)

// RegisterStaticRoutes serves the embedded assets and sends the bare root to the profile page.
func RegisterStaticRoutes(mux *http.ServeMux) {
	mux.Handle("/static/", middleware.StaticCacheMiddleware()(http.StripPrefix("/static/", web.NewStaticHandler())))
	mux.Handle("/{$}", http.RedirectHandler(routeProfile, http.StatusFound))
}
