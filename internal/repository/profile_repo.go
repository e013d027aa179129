package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fraccional/internal/model"
	"fraccional/pkg/apierror"
)

const profileColumns = `id::text, email, nombre, telefono, activo, creado_en, actualizado_en`

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM usuarios WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, profileNotFound(id)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("find profile by id: %w", err)
	}
	return p, nil
}

// Update sets only the columns present in upd and returns the row.
func (r *ProfileRepository) Update(ctx context.Context, id string, upd model.ProfileUpdate) (model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`UPDATE usuarios
		 SET nombre = COALESCE($2, nombre),
		     telefono = COALESCE($3, telefono),
		     actualizado_en = now()
		 WHERE id = $1
		 RETURNING `+profileColumns, id, upd.Name, upd.Phone))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, profileNotFound(id)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE usuarios SET activo = false, actualizado_en = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return profileNotFound(id)
	}
	return nil
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Phone, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func profileNotFound(id string) error {
	e := apierror.Wrap(model.ErrProfileNotFound, apierror.CodeNotFound, "Perfil no encontrado", http.StatusNotFound)
	e.Details = id
	return e
}
