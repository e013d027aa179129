package middleware

import (
	"encoding/json"
	"net/http"

	"fraccional/internal/model"
	"fraccional/pkg/apierror"
)

func jsonEncode(w http.ResponseWriter, value any) error {
	return json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, e *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		},
	})
}
