// Package csp builds Content-Security-Policy headers for the dashboard UI.
//
// CSP helps prevent cross-site scripting and clickjacking by declaring which
// sources the browser may load content from.
package csp

import (
	"net/http"
	"sort"
	"strings"
)

// Builder provides a fluent interface for constructing Content-Security-Policy
// headers. Not safe for concurrent use; build the policy once at startup.
type Builder struct {
	directives map[string][]string
}

// NewBuilder creates an empty policy builder.
func NewBuilder() *Builder {
	return &Builder{directives: make(map[string][]string)}
}

// DefaultSrc sets the default-src directive, the fallback for fetch directives.
func (b *Builder) DefaultSrc(sources ...string) *Builder {
	b.directives["default-src"] = sources
	return b
}

// ScriptSrc sets the script-src directive.
func (b *Builder) ScriptSrc(sources ...string) *Builder {
	b.directives["script-src"] = sources
	return b
}

// StyleSrc sets the style-src directive.
func (b *Builder) StyleSrc(sources ...string) *Builder {
	b.directives["style-src"] = sources
	return b
}

// ImgSrc sets the img-src directive.
func (b *Builder) ImgSrc(sources ...string) *Builder {
	b.directives["img-src"] = sources
	return b
}

// ConnectSrc sets the connect-src directive (fetch, XHR, WebSocket targets).
func (b *Builder) ConnectSrc(sources ...string) *Builder {
	b.directives["connect-src"] = sources
	return b
}

// FrameAncestors sets the frame-ancestors directive (clickjacking protection).
func (b *Builder) FrameAncestors(sources ...string) *Builder {
	b.directives["frame-ancestors"] = sources
	return b
}

// Build renders the policy string with directives in deterministic order.
func (b *Builder) Build() string {
	keys := make([]string, 0, len(b.directives))
	for k := range b.directives {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+strings.Join(b.directives[k], " "))
	}
	return strings.Join(parts, "; ")
}

// DashboardPolicy returns the policy used by the server-rendered dashboard:
// everything same-origin, inline styles allowed for the embedded stylesheet,
// no framing.
func DashboardPolicy() string {
	return NewBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'").
		StyleSrc("'self'", "'unsafe-inline'").
		ImgSrc("'self'", "data:").
		ConnectSrc("'self'").
		FrameAncestors("'none'").
		Build()
}

// APIPolicy returns the policy for JSON endpoints: nothing may load,
// nothing may frame. API responses are never rendered as documents.
func APIPolicy() string {
	return NewBuilder().
		DefaultSrc("'none'").
		FrameAncestors("'none'").
		Build()
}

// SwaggerUIPolicy relaxes script and style sources for the bundled
// Swagger UI, which ships inline scripts and styles.
func SwaggerUIPolicy() string {
	return NewBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'", "'unsafe-inline'").
		StyleSrc("'self'", "'unsafe-inline'").
		ImgSrc("'self'", "data:").
		ConnectSrc("'self'").
		FrameAncestors("'none'").
		Build()
}

// Middleware sets the Content-Security-Policy header on every response.
func Middleware(policy string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", policy)
		next.ServeHTTP(w, r)
	})
}
