package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fraccional/internal/model"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) ListAssignments(ctx context.Context, userID string) ([]model.RoleAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT urf.id::text, urf.usuario_id::text, urf.fraccionamiento_id::text, urf.rol_id,
		        ro.nombre, urf.es_principal, urf.acceso_habilitado
		 FROM usuarios_roles_fraccionamiento urf
		 JOIN roles ro ON ro.id = urf.rol_id
		 WHERE urf.usuario_id = $1
		 ORDER BY urf.es_principal DESC, urf.creado_en`, userID)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]model.RoleAssignment, 0)
	for rows.Next() {
		var a model.RoleAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.TenantID, &a.RoleID,
			&a.RoleName, &a.IsPrimary, &a.AccessEnabled); err != nil {
			return nil, fmt.Errorf("scan role assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// HasTenant reports whether any of the user's assignments names a tenant.
func (r *RoleRepository) HasTenant(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM usuarios_roles_fraccionamiento
		   WHERE usuario_id = $1 AND fraccionamiento_id IS NOT NULL)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tenant assignment: %w", err)
	}
	return exists, nil
}
