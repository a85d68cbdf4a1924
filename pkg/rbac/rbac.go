// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/vidyapay/pkg/middleware"
	"github.com/shashiranjanraj/vidyapay/pkg/response"
)

// HasRole returns middleware that allows access only to callers with one of
// the given roles. An unauthenticated caller gets a 401; an authenticated
// caller with the wrong role gets a 403. Requires middleware.Auth to have
// already run.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
