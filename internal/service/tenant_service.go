package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fraccional/internal/event"
	"fraccional/internal/model"
	"fraccional/internal/repository"
	"fraccional/pkg/apierror"
)

const (
	MsgMissingFields   = "Campos requeridos faltantes"
	MsgAlreadyAssigned = "Usuario ya tiene un condominio asignado"
	MsgInvalidPlan     = "Paquete no válido"
	MsgUnitsExceedPlan = "El número de casas excede el límite del paquete"
	MsgTenantCreated   = "Condominio creado exitosamente"
	MsgTenantFailed    = "Error al crear el condominio"
	MsgUnitsFailed     = "Error al crear las casas"
	MsgSubscription    = "Error al crear la suscripción"
	MsgInternal        = "Error interno del servidor"
)

type TenantStore interface {
	Create(ctx context.Context, in model.NewTenant) (model.TenantCreated, error)
}

type PlanStore interface {
	ListActive(ctx context.Context) ([]model.Plan, error)
	FindActive(ctx context.Context, id int) (model.Plan, error)
}

type MembershipStore interface {
	HasTenant(ctx context.Context, userID string) (bool, error)
}

type TenantService struct {
	tenants TenantStore
	plans   PlanStore
	members MembershipStore
	bus     event.Bus
	now     func() time.Time
}

func NewTenantService(tenants TenantStore, plans PlanStore, members MembershipStore, bus event.Bus) *TenantService {
	return &TenantService{
		tenants: tenants,
		plans:   plans,
		members: members,
		bus:     bus,
		now:     time.Now,
	}
}

func (s *TenantService) ListPlans(ctx context.Context) ([]model.Plan, error) {
	return s.plans.ListActive(ctx)
}

// Validate checks the fields the onboarding form requires. Zero counts
// and ids count as missing.
func Validate(req model.CreateTenantRequest) error {
	if strings.TrimSpace(req.Name) == "" ||
		strings.TrimSpace(req.Address) == "" ||
		strings.TrimSpace(req.City) == "" ||
		strings.TrimSpace(req.State) == "" ||
		req.UnitCount <= 0 ||
		req.PlanID <= 0 {
		return apierror.Wrap(model.ErrInvalidInput, apierror.CodeBadRequest, MsgMissingFields, http.StatusBadRequest)
	}
	return nil
}

// Create onboards owner's condominium: tenant, units "1".."N", an active
// subscription and the owner's tenant-admin link.
func (s *TenantService) Create(ctx context.Context, owner model.User, req model.CreateTenantRequest) (model.TenantCreated, error) {
	if err := Validate(req); err != nil {
		return model.TenantCreated{}, err
	}

	assigned, err := s.members.HasTenant(ctx, owner.ID)
	if err != nil {
		slog.Error("tenant membership check failed", "user_id", owner.ID, "error", err)
		return model.TenantCreated{}, apierror.Wrap(err, apierror.CodeInternal, MsgInternal, http.StatusInternalServerError)
	}
	if assigned {
		return model.TenantCreated{}, apierror.Wrap(model.ErrTenantAlreadyAssigned, apierror.CodeConflict, MsgAlreadyAssigned, http.StatusBadRequest)
	}

	plan, err := s.plans.FindActive(ctx, req.PlanID)
	if errors.Is(err, model.ErrPlanNotFound) {
		return model.TenantCreated{}, apierror.Wrap(err, apierror.CodeBadRequest, MsgInvalidPlan, http.StatusBadRequest)
	}
	if err != nil {
		slog.Error("plan lookup failed", "plan_id", req.PlanID, "error", err)
		return model.TenantCreated{}, apierror.Wrap(err, apierror.CodeInternal, MsgInternal, http.StatusInternalServerError)
	}
	if req.UnitCount > plan.MaxUnits {
		return model.TenantCreated{}, apierror.Wrap(model.ErrUnitCountExceedsPlan, apierror.CodeBadRequest, MsgUnitsExceedPlan, http.StatusBadRequest)
	}

	created, err := s.tenants.Create(ctx, model.NewTenant{Owner: owner, Request: req, StartDate: s.now()})
	if err != nil {
		slog.Error("onboarding failed", "user_id", owner.ID, "error", err)
		return model.TenantCreated{}, stepFailure(err)
	}

	slog.Info("tenant created", "tenant_id", created.Tenant.ID, "user_id", owner.ID, "units", created.UnitCount, "plan_id", req.PlanID)
	if s.bus != nil {
		s.bus.Publish(event.Event{Type: event.TypeTenantCreated, Payload: map[string]any{
			"tenant_id": created.Tenant.ID,
			"user_id":   owner.ID,
			"plan_id":   req.PlanID,
			"units":     created.UnitCount,
		}})
	}

	return created, nil
}

func stepFailure(err error) error {
	msg := MsgTenantFailed
	details := err.Error()

	var stepErr *repository.StepError
	if errors.As(err, &stepErr) {
		details = stepErr.Err.Error()
		switch stepErr.Step {
		case repository.StepUnits:
			msg = MsgUnitsFailed
		case repository.StepSubscription:
			msg = MsgSubscription
		}
	}

	e := apierror.Wrap(err, apierror.CodeInternal, msg, http.StatusInternalServerError)
	e.Details = details
	return e
}
