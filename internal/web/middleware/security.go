package middleware

import (
	"fmt"
	"net/http"
)

type SecurityHeadersConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	CSP                   string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

func SecurityHeadersFromConfig(enableHSTS bool, hstsMaxAge int, hstsIncludeSubdomains bool, csp, referrerPolicy, permissionsPolicy string) SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:            enableHSTS,
		HSTSMaxAge:            hstsMaxAge,
		HSTSIncludeSubdomains: hstsIncludeSubdomains,
		CSP:                   csp,
		ReferrerPolicy:        referrerPolicy,
		PermissionsPolicy:     permissionsPolicy,
	}
}

func SecurityHeadersWithConfig(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	hsts := ""
	if config.EnableHSTS {
		hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")

			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			if config.CSP != "" {
				h.Set("Content-Security-Policy", config.CSP)
			}
			if config.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", config.ReferrerPolicy)
			}
			if config.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", config.PermissionsPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
