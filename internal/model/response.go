package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// OnboardingResponse keeps the flat shape onboarding clients expect.
type OnboardingResponse struct {
	Success      bool          `json:"success,omitempty"`
	Tenant       *Tenant       `json:"fraccionamiento,omitempty"`
	Subscription *Subscription `json:"suscripcion,omitempty"`
	Message      string        `json:"message,omitempty"`
	Error        string        `json:"error,omitempty"`
	Details      string        `json:"details,omitempty"`
}

type PlanList struct {
	Plans []Plan `json:"plans"`
}
