// Package requesttime pins a single "now" per request so lockout windows,
// session expiry and audit timestamps agree within one request.
package requesttime

import (
	"net/http"
	"time"

	"vaultline/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
