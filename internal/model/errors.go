package model

import "errors"

var (
	// Session related errors
	ErrNoSession       = errors.New("no session")
	ErrSessionExpired  = errors.New("session expired")
	ErrUnauthenticated = errors.New("unauthenticated")

	// Credential related errors
	ErrCurrentPasswordIncorrect = errors.New("current password incorrect")

	// Row related errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrPlanNotFound    = errors.New("plan not found")

	// Onboarding related errors
	ErrTenantAlreadyAssigned = errors.New("tenant already assigned")
	ErrUnitCountExceedsPlan  = errors.New("unit count exceeds plan")
	ErrRequestInProgress     = errors.New("request in progress")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
