package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"fraccional/pkg/apierror"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				slog.Error("panic recovered", "path", r.URL.Path, "error", fmt.Sprintf("%v", recovered), "stack", string(debug.Stack()))

				if strings.HasPrefix(r.URL.Path, "/api/") {
					writeError(w, apierror.New(apierror.CodeInternal, "Error interno del servidor", "", http.StatusInternalServerError))
					return
				}
				http.Error(w, "Error interno del servidor", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
