package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fraccional/internal/model"
)

type PlanRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

func (r *PlanRepository) ListActive(ctx context.Context) ([]model.Plan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, nombre, descripcion, precio_mensual::float8, max_casas
		 FROM paquetes WHERE activo ORDER BY precio_mensual, id`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := make([]model.Plan, 0)
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.MonthlyPrice, &p.MaxUnits); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// FindActive returns model.ErrPlanNotFound for unknown or inactive plans.
func (r *PlanRepository) FindActive(ctx context.Context, id int) (model.Plan, error) {
	var p model.Plan
	err := r.pool.QueryRow(ctx,
		`SELECT id, nombre, descripcion, precio_mensual::float8, max_casas
		 FROM paquetes WHERE id = $1 AND activo`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.MonthlyPrice, &p.MaxUnits)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Plan{}, model.ErrPlanNotFound
	}
	if err != nil {
		return model.Plan{}, fmt.Errorf("find plan: %w", err)
	}
	return p, nil
}
