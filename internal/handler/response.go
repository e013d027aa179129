package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fraccional/internal/model"
	"fraccional/internal/supabase"
	"fraccional/pkg/apierror"
)

const maxJSONBody = 1 << 20

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// classify maps an error to a status and envelope error. Provider errors
// keep their status and verbatim message.
func classify(err error) (int, *model.APIError) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    apierror.CodeInternal,
		Message: "Error interno del servidor",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if authErr, ok := supabase.IsAuthError(err); ok {
		status = authErr.Status
		if status < 400 || status > 499 {
			status = http.StatusBadGateway
		}
		body.Code = apierror.CodeAuth
		body.Message = authErr.Message
		body.Details = authErr.Code
	} else if errors.Is(err, supabase.ErrSessionMissing) || errors.Is(err, model.ErrUnauthenticated) || errors.Is(err, model.ErrSessionExpired) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "Usuario no autenticado"
	} else if errors.Is(err, model.ErrNoSession) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeAuth
		body.Message = "No se pudo establecer la sesión"
	} else if errors.Is(err, model.ErrProfileNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "Perfil no encontrado"
	} else if errors.Is(err, model.ErrPlanNotFound) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "Paquete no válido"
	} else if errors.Is(err, model.ErrRequestInProgress) {
		status = http.StatusConflict
		body.Code = apierror.CodeConflict
		body.Message = "Solicitud en proceso"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "Datos inválidos"
	} else {
		slog.Error("unhandled error in writeError", "error", err)
	}

	return status, body
}

// flatError is the onboarding error shape: {"error": "...", "details": "..."}.
func flatError(err error) (int, model.OnboardingResponse) {
	status, body := classify(err)
	return status, model.OnboardingResponse{Error: body.Message, Details: body.Details}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeError(w, apierror.BadRequest("Cuerpo JSON inválido", ""))
		return false
	}
	return true
}
