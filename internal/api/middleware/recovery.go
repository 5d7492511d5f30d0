package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/qhunt/internal/api/apierr"
	"github.com/mcoot/qhunt/internal/middleware"
)

// Recovery turns a handler panic into a JSON INTERNAL_ERROR that quotes the request id
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, r *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError(middleware.RequestID(r.Context())))
	})
}
