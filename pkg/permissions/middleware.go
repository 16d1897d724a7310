package permissions

import (
	"net/http"

	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/httputil"
)

// Require gates a route on one matrix cell. Runs after the Auth Gate; a
// request without an identity is rejected outright.
func Require(cache *Cache, resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := auth.IdentityFromContext(r.Context())
			if ident == nil {
				httputil.WriteUnauthorized(w, "missing authorization header")
				return
			}

			if !cache.Allowed(r.Context(), ident.AccessLevel, resource, action) {
				httputil.WriteForbidden(w, "permissão insuficiente")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
