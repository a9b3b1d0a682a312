package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl returns a middleware that sets a Cache-Control header on GET
// responses. Responses are marked private because they may vary by viewer.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
