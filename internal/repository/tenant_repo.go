package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fraccional/internal/model"
)

// Onboarding steps whose failure aborts the transaction.
const (
	StepTenant       = "tenant"
	StepUnits        = "units"
	StepSubscription = "subscription"
)

// StepError names the onboarding step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("onboarding step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type TenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// Create inserts the tenant, its units and its subscription in one
// transaction, then links the owner. Owner linking runs in savepoints and
// never aborts the onboarding.
func (r *TenantRepository) Create(ctx context.Context, in model.NewTenant) (model.TenantCreated, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.TenantCreated{}, fmt.Errorf("begin onboarding tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tenant, err := insertTenant(ctx, tx, in.Request)
	if err != nil {
		return model.TenantCreated{}, &StepError{Step: StepTenant, Err: err}
	}

	if err := insertUnits(ctx, tx, tenant.ID, in.Request.UnitCount); err != nil {
		return model.TenantCreated{}, &StepError{Step: StepUnits, Err: err}
	}

	subscription, err := insertSubscription(ctx, tx, tenant.ID, in.Request.PlanID, in.StartDate)
	if err != nil {
		return model.TenantCreated{}, &StepError{Step: StepSubscription, Err: err}
	}

	savepoint(ctx, tx, "ensure owner profile", func(sp pgx.Tx) error {
		return upsertOwner(ctx, sp, in.Owner)
	})
	savepoint(ctx, tx, "assign tenant admin", func(sp pgx.Tx) error {
		return assignTenantAdmin(ctx, sp, in.Owner.ID, tenant.ID)
	})

	if err := tx.Commit(ctx); err != nil {
		return model.TenantCreated{}, fmt.Errorf("commit onboarding tx: %w", err)
	}

	return model.TenantCreated{Tenant: tenant, Subscription: subscription, UnitCount: in.Request.UnitCount}, nil
}

func insertTenant(ctx context.Context, tx pgx.Tx, req model.CreateTenantRequest) (model.Tenant, error) {
	var t model.Tenant
	err := tx.QueryRow(ctx,
		`INSERT INTO fraccionamientos
		   (nombre, direccion, ciudad, estado, codigo_postal, telefono, email, estado_servicio, activo)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
		 RETURNING id::text, nombre, COALESCE(direccion, ''), COALESCE(ciudad, ''), COALESCE(estado, ''),
		           COALESCE(codigo_postal, ''), COALESCE(telefono, ''), COALESCE(email, ''),
		           estado_servicio, activo, creado_en`,
		req.Name, req.Address, req.City, req.State,
		nullIfEmpty(req.PostalCode), nullIfEmpty(req.Phone), nullIfEmpty(req.Email),
		model.TenantServiceActive).
		Scan(&t.ID, &t.Name, &t.Address, &t.City, &t.State, &t.PostalCode, &t.Phone, &t.Email,
			&t.ServiceStatus, &t.Active, &t.CreatedAt)
	if err != nil {
		return model.Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}
	return t, nil
}

// insertUnits creates units numbered "1".."count".
func insertUnits(ctx context.Context, tx pgx.Tx, tenantID string, count int) error {
	// COPY is binary only; a parsed uuid encodes where a string does not.
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return fmt.Errorf("parse tenant id: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"casas"},
		[]string{"fraccionamiento_id", "numero_casa", "activo"},
		pgx.CopyFromSlice(count, func(i int) ([]any, error) {
			return []any{id, strconv.Itoa(i + 1), true}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert units: %w", err)
	}
	if int(n) != count {
		return fmt.Errorf("insert units: copied %d of %d rows", n, count)
	}
	return nil
}

func insertSubscription(ctx context.Context, tx pgx.Tx, tenantID string, planID int, start time.Time) (model.Subscription, error) {
	var s model.Subscription
	err := tx.QueryRow(ctx,
		`INSERT INTO condominios_suscripciones (fraccionamiento_id, paquete_id, fecha_inicio, estado)
		 VALUES ($1, $2, $3::date, $4)
		 RETURNING id::text, fraccionamiento_id::text, paquete_id, fecha_inicio::text, estado`,
		tenantID, planID, model.FormatStartDate(start), model.SubscriptionActive).
		Scan(&s.ID, &s.TenantID, &s.PlanID, &s.StartDate, &s.Status)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	return s, nil
}

func upsertOwner(ctx context.Context, tx pgx.Tx, owner model.User) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO usuarios (id, email, nombre, activo)
		 VALUES ($1, $2, $3, true)
		 ON CONFLICT (id) DO UPDATE
		 SET email = EXCLUDED.email,
		     nombre = COALESCE(NULLIF(EXCLUDED.nombre, ''), usuarios.nombre),
		     activo = true,
		     actualizado_en = now()`,
		owner.ID, owner.Email, owner.DisplayName())
	if err != nil {
		return fmt.Errorf("upsert owner profile: %w", err)
	}
	return nil
}

// assignTenantAdmin links the owner's ADMIN_CONDOMINIO assignment to the
// tenant, creating the assignment when the user has none.
func assignTenantAdmin(ctx context.Context, tx pgx.Tx, userID string, tenantID string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE usuarios_roles_fraccionamiento
		 SET fraccionamiento_id = $2, es_principal = true
		 WHERE usuario_id = $1 AND rol_id = $3`,
		userID, tenantID, model.TenantAdminRoleID)
	if err != nil {
		return fmt.Errorf("update tenant admin assignment: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO usuarios_roles_fraccionamiento
		   (usuario_id, fraccionamiento_id, rol_id, es_principal, acceso_habilitado)
		 VALUES ($1, $2, $3, true, true)`,
		userID, tenantID, model.TenantAdminRoleID)
	if err != nil {
		return fmt.Errorf("insert tenant admin assignment: %w", err)
	}
	return nil
}

// savepoint runs fn in a nested transaction; a failure is rolled back to
// the savepoint and logged.
func savepoint(ctx context.Context, tx pgx.Tx, name string, fn func(pgx.Tx) error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		slog.Error("onboarding savepoint failed", "step", name, "error", err)
		return
	}

	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		slog.Warn("onboarding step skipped", "step", name, "error", err)
		return
	}

	if err := sp.Commit(ctx); err != nil {
		slog.Warn("onboarding step not released", "step", name, "error", err)
	}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
