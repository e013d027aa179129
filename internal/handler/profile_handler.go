package handler

import (
	"log/slog"
	"net/http"

	"fraccional/internal/model"
	"fraccional/internal/service"
)

type ProfileHandler struct {
	credentials *service.CredentialService
	roles       *RoleCookies
}

func NewProfileHandler(credentials *service.CredentialService, roles *RoleCookies) *ProfileHandler {
	return &ProfileHandler{credentials: credentials, roles: roles}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	profile, err := h.credentials.GetUserProfile(r.Context(), identity.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var payload model.ProfileUpdate
	if !decodeJSON(w, r, &payload) {
		return
	}

	profile, err := h.credentials.UpdateProfile(r.Context(), identity.User.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile)
}

// Delete deactivates the profile and ends the session.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	if err := h.credentials.DeleteAccount(r.Context(), identity.User.ID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.credentials.SignOut(r.Context(), identity.Provider); err != nil {
		slog.Warn("sign out after deactivation failed", "user_id", identity.User.ID, "error", err)
	}
	h.roles.Clear(w)

	writeSuccess(w, http.StatusOK, map[string]any{"deactivated": true})
}
