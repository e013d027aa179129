package model

import "time"

// User is the provider's view of an authenticated account.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	Metadata         map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        *time.Time     `json:"created_at,omitempty"`
}

// DisplayName returns the "nombre" captured at sign-up, if any.
func (u User) DisplayName() string {
	name, _ := u.Metadata["nombre"].(string)
	return name
}

// Profile is a row of the usuarios table.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"nombre"`
	Phone     *string   `json:"telefono"`
	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"creado_en"`
	UpdatedAt time.Time `json:"actualizado_en"`
}

// ProfileUpdate carries the optional columns a user may edit.
type ProfileUpdate struct {
	Name  *string `json:"nombre,omitempty"`
	Phone *string `json:"telefono,omitempty"`
}

func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil
}
