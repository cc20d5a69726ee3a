package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
)

// Recoverer turns a panicking handler into a JSON 500 carrying the trace ID.
// It must run after TraceMiddleware. http.ErrAbortHandler is re-raised so
// net/http can abort the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.FromContextOrDefault(r.Context(), slog.Default()).Error("handler panic",
				slog.String("panic", fmt.Sprint(rec)),
				slog.String("path", r.URL.Path),
				slog.String("method", r.Method),
				slog.String("stack", string(debug.Stack())))

			// Upgraded connections have no response to write.
			if r.Header.Get("Connection") != "Upgrade" {
				shared.RespondWithError(w, r, http.StatusInternalServerError, "An unexpected error occurred")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
