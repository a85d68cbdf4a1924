package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/shashiranjanraj/vidyapay/pkg/logger"
	"github.com/shashiranjanraj/vidyapay/pkg/response"
)

// Recovery turns a panic anywhere downstream into a logged 500 instead of
// a dropped connection. The stack trace goes to the structured log, tagged
// with the request ID when available.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.WithCtx(r.Context()).Error("handler panicked",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		}()
		next.ServeHTTP(w, r)
	})
}
