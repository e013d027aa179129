package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"fraccional/internal/model"
	"fraccional/pkg/apierror"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds API handlers. A handler still running at the deadline is
// answered with a 503 JSON envelope and its context is cancelled, which
// also aborts in-flight provider and database calls.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    apierror.CodeTimeout,
			Message: "La solicitud tardó demasiado",
		},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
