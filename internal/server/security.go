// security.go - Security headers for every response.
package server

import "net/http"

// securityHeadersMiddleware adds security headers to all responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Prevent MIME sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Referrer Policy - don't leak URLs
		w.Header().Set("Referrer-Policy", "no-referrer")

		// The embedded UI ships its own JS and CSS files, so 'self' is
		// enough. media-src/img-src allow the local object-URL preview
		// and fetched uploads; frame-src covers the PDF preview iframe.
		csp := "default-src 'self'; " +
			"script-src 'self'; " +
			"style-src 'self'; " +
			"img-src 'self' blob: data:; " +
			"media-src 'self' blob:; " +
			"frame-src 'self' blob:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
		w.Header().Set("Content-Security-Policy", csp)

		next.ServeHTTP(w, r)
	})
}
