package authz

import (
	"fmt"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
)

// RoleSeed builtin role definition
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds staff roles; seller and courier hold no privileged permission
func BuiltinRoleSeeds() []RoleSeed {
	managerPolicies := make([]Policy, 0, len(ManagerPermissions()))
	for _, p := range ManagerPermissions() {
		managerPolicies = append(managerPolicies, Policy{Object: p.Object, Action: p.Action})
	}
	return []RoleSeed{
		{Role: constants.RoleSeller},
		{Role: constants.RoleCourier},
		{Role: constants.RoleManager, Policies: managerPolicies},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RoleManager},
			Policies: []Policy{{Object: "/*", Action: "*"}},
		},
	}
}

// BootstrapBuiltinRoles seeds builtin roles and their rules; existing rules are kept
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return fmt.Errorf("create builtin role failed: %w", err)
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}

// IsBuiltinRole reports whether role is one of the seeded staff roles
func IsBuiltinRole(role string) bool {
	subject, err := NormalizeRole(role)
	if err != nil {
		return false
	}
	for _, seed := range BuiltinRoleSeeds() {
		if builtin, _ := NormalizeRole(seed.Role); builtin == subject {
			return true
		}
	}
	return false
}
