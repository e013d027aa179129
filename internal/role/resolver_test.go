package role

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"fraccional/internal/model"
)

type stubStore struct {
	assignments []model.RoleAssignment
	err         error
}

func (s stubStore) ListAssignments(context.Context, string) ([]model.RoleAssignment, error) {
	return s.assignments, s.err
}

func assignment(name string, enabled bool) model.RoleAssignment {
	return model.RoleAssignment{UserID: "u1", RoleName: name, AccessEnabled: enabled}
}

func TestResolveRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store stubStore
		want  model.RoleFlags
	}{
		{
			name: "no assignments",
			want: model.RoleFlags{},
		},
		{
			name:  "system admin",
			store: stubStore{assignments: []model.RoleAssignment{assignment(model.RoleNameSystemAdmin, true)}},
			want:  model.RoleFlags{IsSystemAdmin: true},
		},
		{
			name:  "tenant admin",
			store: stubStore{assignments: []model.RoleAssignment{assignment(model.RoleNameTenantAdmin, true)}},
			want:  model.RoleFlags{IsTenantAdmin: true},
		},
		{
			name: "enabled system admin with disabled tenant admin",
			store: stubStore{assignments: []model.RoleAssignment{
				assignment(model.RoleNameSystemAdmin, true),
				assignment(model.RoleNameTenantAdmin, false),
			}},
			want: model.RoleFlags{IsSystemAdmin: true},
		},
		{
			name: "both enabled",
			store: stubStore{assignments: []model.RoleAssignment{
				assignment(model.RoleNameTenantAdmin, true),
				assignment(model.RoleNameSystemAdmin, true),
			}},
			want: model.RoleFlags{IsSystemAdmin: true, IsTenantAdmin: true},
		},
		{
			name:  "disabled only",
			store: stubStore{assignments: []model.RoleAssignment{assignment(model.RoleNameSystemAdmin, false)}},
			want:  model.RoleFlags{},
		},
		{
			name:  "unrelated role",
			store: stubStore{assignments: []model.RoleAssignment{assignment("RESIDENTE", true)}},
			want:  model.RoleFlags{},
		},
		{
			name: "lookup failure grants nothing",
			store: stubStore{
				assignments: []model.RoleAssignment{assignment(model.RoleNameSystemAdmin, true)},
				err:         errors.New("connection refused"),
			},
			want: model.RoleFlags{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewResolver(tt.store).ResolveRoles(context.Background(), "u1")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.ClassificationSystemAdmin, Classify(model.RoleFlags{IsSystemAdmin: true, IsTenantAdmin: true}))
	assert.Equal(t, model.ClassificationSystemAdmin, Classify(model.RoleFlags{IsSystemAdmin: true}))
	assert.Equal(t, model.ClassificationTenantAdmin, Classify(model.RoleFlags{IsTenantAdmin: true}))
	assert.Equal(t, model.ClassificationUnclassified, Classify(model.RoleFlags{}))
}

func TestLoginRedirect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/dashboard?from=login", LoginRedirect(model.RoleFlags{IsTenantAdmin: true}))
	assert.Equal(t, "/dashboard?from=login", LoginRedirect(model.RoleFlags{IsSystemAdmin: true}))
	assert.Equal(t, "/onboarding", LoginRedirect(model.RoleFlags{}))
}
