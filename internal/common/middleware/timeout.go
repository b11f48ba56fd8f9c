package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/restspec/internal/common/httpx"
)

// SetTimeout cancels the request context after timeout and answers 408 if the handler
// has not started a response by then. Handlers must honor context cancellation.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := httpx.NewResponseWriter(w)
			rw.Header().Set("X-Server-Timeout", timeout.String())
			next.ServeHTTP(rw, r.WithContext(ctx))

			if ctx.Err() == context.DeadlineExceeded && !rw.Written() {
				log.Ctx(ctx).Error().Msg("request timed out")
				httpx.ErrRequestTimeout().Send(rw)
			}
		})
	}
}
