package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"fraccional/internal/cache"
	"fraccional/internal/model"
	"fraccional/internal/service"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKey    = 255
)

type tenantCreator interface {
	Create(ctx context.Context, owner model.User, req model.CreateTenantRequest) (model.TenantCreated, error)
}

type idempotencyStore interface {
	Lookup(ctx context.Context, userID, key string) (*cache.Record, error)
	Reserve(ctx context.Context, userID, key string) (string, bool, error)
	Save(ctx context.Context, userID, key, token string, rec cache.Record) error
	Release(ctx context.Context, userID, key, token string) error
}

// OnboardingHandler answers with the flat onboarding shape, not the
// envelope.
type OnboardingHandler struct {
	gateway sessionGateway
	tenants tenantCreator
	roles   *RoleCookies
	idem    idempotencyStore
}

// NewOnboardingHandler accepts a nil idem to disable Idempotency-Key
// support.
func NewOnboardingHandler(gateway sessionGateway, tenants tenantCreator, roles *RoleCookies, idem idempotencyStore) *OnboardingHandler {
	return &OnboardingHandler{gateway: gateway, tenants: tenants, roles: roles, idem: idem}
}

func (h *OnboardingHandler) CreateCondominium(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req model.CreateTenantRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeFlat(w, http.StatusBadRequest, model.OnboardingResponse{Error: service.MsgMissingFields})
		return
	}

	if err := service.Validate(req); err != nil {
		writeFlatError(w, err)
		return
	}

	identity, err := h.gateway.Authenticate(w, r)
	if err != nil {
		writeFlatError(w, model.ErrUnauthenticated)
		return
	}
	userID := identity.User.ID

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKey {
		key = ""
	}
	if h.idem == nil || key == "" {
		status, body := h.create(w, r, *identity.User, req)
		writeFlat(w, status, body)
		return
	}

	if rec, err := h.idem.Lookup(r.Context(), userID, key); err != nil {
		slog.Warn("idempotency lookup failed", "user_id", userID, "error", err)
	} else if rec != nil {
		slog.Info("onboarding replayed", "user_id", userID)
		w.Header().Set(replayedHeader, "true")
		writeRaw(w, rec.Status, rec.Body)
		return
	}

	token, reserved, err := h.idem.Reserve(r.Context(), userID, key)
	if err != nil {
		slog.Warn("idempotency reserve failed", "user_id", userID, "error", err)
		status, body := h.create(w, r, *identity.User, req)
		writeFlat(w, status, body)
		return
	}
	if !reserved {
		writeFlatError(w, model.ErrRequestInProgress)
		return
	}

	status, body := h.create(w, r, *identity.User, req)
	// The outcome is recorded even when the client is gone or timed out.
	finish := context.WithoutCancel(r.Context())
	raw, err := json.Marshal(body)
	if err != nil {
		_ = h.idem.Release(finish, userID, key, token)
		writeFlat(w, status, body)
		return
	}

	// Only final outcomes are replayed; a 5xx may succeed on retry.
	if status < http.StatusInternalServerError {
		if err := h.idem.Save(finish, userID, key, token, cache.Record{Status: status, Body: raw}); err != nil {
			slog.Warn("idempotency save failed", "user_id", userID, "error", err)
		}
	} else if err := h.idem.Release(finish, userID, key, token); err != nil {
		slog.Warn("idempotency release failed", "user_id", userID, "error", err)
	}

	writeRaw(w, status, raw)
}

func (h *OnboardingHandler) create(w http.ResponseWriter, r *http.Request, owner model.User, req model.CreateTenantRequest) (int, model.OnboardingResponse) {
	created, err := h.tenants.Create(r.Context(), owner, req)
	if err != nil {
		return flatError(err)
	}

	h.roles.Refresh(w, r.Context(), owner.ID)

	return http.StatusOK, model.OnboardingResponse{
		Success:      true,
		Tenant:       &created.Tenant,
		Subscription: &created.Subscription,
		Message:      service.MsgTenantCreated,
	}
}

func writeFlat(w http.ResponseWriter, status int, body model.OnboardingResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFlatError(w http.ResponseWriter, err error) {
	status, body := flatError(err)
	writeFlat(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
