package model

import "time"

const (
	TenantServiceActive  = "ACTIVO"
	SubscriptionActive   = "ACTIVA"
	subscriptionDateForm = "2006-01-02"
)

// CreateTenantRequest is the onboarding payload. Zero counts and ids are
// treated as missing.
type CreateTenantRequest struct {
	Name       string `json:"nombre"`
	Address    string `json:"direccion"`
	City       string `json:"ciudad"`
	State      string `json:"estado"`
	PostalCode string `json:"codigoPostal"`
	Phone      string `json:"telefono"`
	Email      string `json:"email"`
	UnitCount  int    `json:"numeroCasas"`
	PlanID     int    `json:"paqueteId"`
}

// NewTenant is everything the onboarding transaction needs.
type NewTenant struct {
	Owner     User
	Request   CreateTenantRequest
	StartDate time.Time
}

type Tenant struct {
	ID            string    `json:"id"`
	Name          string    `json:"nombre"`
	Address       string    `json:"direccion"`
	City          string    `json:"ciudad"`
	State         string    `json:"estado"`
	PostalCode    string    `json:"codigo_postal"`
	Phone         string    `json:"telefono"`
	Email         string    `json:"email"`
	ServiceStatus string    `json:"estado_servicio"`
	Active        bool      `json:"activo"`
	CreatedAt     time.Time `json:"creado_en"`
}

type Unit struct {
	TenantID string `json:"fraccionamiento_id"`
	Number   string `json:"numero_casa"`
	Active   bool   `json:"activo"`
}

type Plan struct {
	ID           int     `json:"id"`
	Name         string  `json:"nombre"`
	Description  *string `json:"descripcion"`
	MonthlyPrice float64 `json:"precio_mensual"`
	MaxUnits     int     `json:"max_casas"`
}

type Subscription struct {
	ID        string `json:"id"`
	TenantID  string `json:"fraccionamiento_id"`
	PlanID    int    `json:"paquete_id"`
	StartDate string `json:"fecha_inicio"`
	Status    string `json:"estado"`
}

// FormatStartDate renders a subscription start date as stored.
func FormatStartDate(t time.Time) string {
	return t.UTC().Format(subscriptionDateForm)
}

// TenantCreated is the onboarding result.
type TenantCreated struct {
	Tenant       Tenant       `json:"tenant"`
	Subscription Subscription `json:"subscription"`
	UnitCount    int          `json:"unit_count"`
}
