package middleware

import (
	"net/http"
	"strings"
)

// CSPMiddlewareConfig holds configuration for CSP middleware.
// It supports path-based policy selection and report-only mode for
// trialing a policy before enforcement.
type CSPMiddlewareConfig struct {
	// Enabled controls whether CSP headers are applied.
	Enabled bool

	// DefaultPolicy is applied when no path-specific policy matches.
	DefaultPolicy string

	// PathPolicies maps path prefixes to specific policies. The longest
	// matching prefix wins.
	// Example: map[string]string{"/swagger/": csp.SwaggerUIPolicy()}
	PathPolicies map[string]string

	// ReportOnly sends Content-Security-Policy-Report-Only so violations
	// are logged by the browser but not enforced.
	ReportOnly bool
}

// CSPMiddleware applies Content-Security-Policy headers to responses.
type CSPMiddleware struct {
	config CSPMiddlewareConfig
}

// NewCSPMiddleware creates a CSP middleware with the provided configuration.
func NewCSPMiddleware(config CSPMiddlewareConfig) *CSPMiddleware {
	return &CSPMiddleware{config: config}
}

// Middleware returns an HTTP middleware that sets the CSP header chosen
// for the request path. Disabled or empty policies pass through untouched.
func (m *CSPMiddleware) Middleware() func(http.Handler) http.Handler {
	headerName := "Content-Security-Policy"
	if m.config.ReportOnly {
		headerName = "Content-Security-Policy-Report-Only"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			policy := m.selectPolicy(r.URL.Path)
			if policy == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(headerName, policy)
			next.ServeHTTP(w, r)
		})
	}
}

// selectPolicy returns the policy for the longest matching path prefix,
// falling back to the default policy.
func (m *CSPMiddleware) selectPolicy(path string) string {
	longestPrefix := ""
	matched := ""

	for prefix, policy := range m.config.PathPolicies {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(longestPrefix) {
			longestPrefix = prefix
			matched = policy
		}
	}

	if matched != "" {
		return matched
	}
	return m.config.DefaultPolicy
}
