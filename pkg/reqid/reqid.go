// Package reqid tags every HTTP request with a correlation ID.
//
// The ID rides along in the request context and the X-Request-ID response
// header. The logging middleware picks it up so all log lines for one
// request share the same request_id field.
package reqid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header carries the request ID between services.
const Header = "X-Request-ID"

type idKey struct{}

// New returns a fresh random request ID.
func New() string {
	return uuid.NewString()
}

// WithValue returns a child context carrying id.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// FromCtx returns the request ID stored in ctx, or "" when there is none.
func FromCtx(ctx context.Context) string {
	id, _ := ctx.Value(idKey{}).(string)
	return id
}

// Middleware assigns each request an ID and echoes it in the response.
// A caller-provided X-Request-ID is kept as is, so IDs stay stable when
// requests hop between services.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if id == "" {
				id = New()
			}
			w.Header().Set(Header, id)
			next.ServeHTTP(w, r.WithContext(WithValue(r.Context(), id)))
		})
	}
}
