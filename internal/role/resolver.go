// Package role derives a user's administrative flags from their role
// assignments.
package role

import (
	"context"
	"log/slog"

	"fraccional/internal/model"
)

const (
	DashboardAfterLogin = "/dashboard?from=login"
	OnboardingPath      = "/onboarding"
)

// AssignmentStore lists a user's role assignments with role names.
type AssignmentStore interface {
	ListAssignments(ctx context.Context, userID string) ([]model.RoleAssignment, error)
}

type Resolver struct {
	store AssignmentStore
}

func NewResolver(store AssignmentStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveRoles never fails: a lookup error grants no privilege.
func (r *Resolver) ResolveRoles(ctx context.Context, userID string) model.RoleFlags {
	assignments, err := r.store.ListAssignments(ctx, userID)
	if err != nil {
		slog.Error("role lookup failed", "user_id", userID, "error", err)
		return model.RoleFlags{}
	}
	return FlagsFrom(assignments)
}

// FlagsFrom sets each flag from the enabled assignments only.
func FlagsFrom(assignments []model.RoleAssignment) model.RoleFlags {
	var flags model.RoleFlags
	for _, a := range assignments {
		if !a.AccessEnabled {
			continue
		}
		switch a.RoleName {
		case model.RoleNameSystemAdmin:
			flags.IsSystemAdmin = true
		case model.RoleNameTenantAdmin:
			flags.IsTenantAdmin = true
		}
	}
	return flags
}

// Classify gives SYSTEM_ADMIN precedence over TENANT_ADMIN.
func Classify(flags model.RoleFlags) model.RoleClassification {
	switch {
	case flags.IsSystemAdmin:
		return model.ClassificationSystemAdmin
	case flags.IsTenantAdmin:
		return model.ClassificationTenantAdmin
	default:
		return model.ClassificationUnclassified
	}
}

// LoginRedirect is where a user lands after signing in.
func LoginRedirect(flags model.RoleFlags) string {
	if flags.IsAdmin() {
		return DashboardAfterLogin
	}
	return OnboardingPath
}
