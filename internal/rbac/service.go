package rbac

import (
	"context"
	"errors"
	"sort"

	"github.com/labportal/reagent-portal/internal/shared"
)

// ErrUnknownRole indicates the role has no grant.
var ErrUnknownRole = errors.New("rbac: unknown role")

// Service resolves permissions for authenticated actors.
type Service struct {
	grants map[shared.Role][]string
}

// NewService constructs a Service with the built-in role grants.
func NewService() *Service {
	return &Service{grants: map[shared.Role][]string{
		shared.RoleAdmin:    shared.AdminScopes(),
		shared.RoleCustomer: shared.CustomerScopes(),
	}}
}

// NewServiceWithGrants constructs a Service from explicit role grants.
func NewServiceWithGrants(grants map[shared.Role][]string) *Service {
	return &Service{grants: grants}
}

// EffectivePermissions returns the permissions held by the actor.
func (s *Service) EffectivePermissions(ctx context.Context, actor shared.Actor) ([]string, error) {
	perms, ok := s.grants[actor.Role]
	if !ok {
		return nil, ErrUnknownRole
	}
	out := make([]string, len(perms))
	copy(out, perms)
	sort.Strings(out)
	return out, nil
}

// ListPermissions returns every known permission ordered by name.
func (s *Service) ListPermissions(ctx context.Context) []Permission {
	perms := make([]Permission, 0, len(descriptions))
	for name, desc := range descriptions {
		perms = append(perms, Permission{Name: name, Description: desc})
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}
