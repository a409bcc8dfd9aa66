package middleware

import (
	"fmt"
	"net/http"
	"strings"
)

type CacheConfig struct {
	MaxAge    int
	Public    bool
	NoStore   bool
	Immutable bool
}

func CacheMiddleware(config CacheConfig) func(http.Handler) http.Handler {
	var directives []string
	if config.NoStore {
		directives = append(directives, "no-store")
	} else {
		if config.Public {
			directives = append(directives, "public")
		} else {
			directives = append(directives, "private")
		}
		if config.MaxAge > 0 {
			directives = append(directives, fmt.Sprintf("max-age=%d", config.MaxAge))
		}
		if config.Immutable {
			directives = append(directives, "immutable")
		}
	}
	cacheControl := strings.Join(directives, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", cacheControl)
			next.ServeHTTP(w, r)
		})
	}
}

// StaticCacheMiddleware caches stylesheets and scripts for a day.
func StaticCacheMiddleware() func(http.Handler) http.Handler {
	return CacheMiddleware(CacheConfig{
		MaxAge: 86400,
		Public: true,
	})
}

// NoCache keeps pages that show tokens or client secrets out of shared caches.
func NoCache() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
			next.ServeHTTP(w, r)
		})
	}
}
