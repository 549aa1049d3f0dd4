package service

import (
	"fmt"
	"strings"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
)

// PolicyStore role rules editable at runtime
type PolicyStore interface {
	ListRoles() ([]string, error)
	HasRole(role string) (bool, error)
	RolePolicies(role string) ([]authz.Policy, error)
	GrantRolePolicy(role, object, action string) error
	RevokeRolePolicy(role, object, action string) error
	DeleteRole(role string) error
}

// PolicyService role and permission administration. Every call needs PermManagePolicies.
type PolicyService struct {
	store      PolicyStore
	authorizer Authorizer
}

// RolePolicyInput one rule of a role
type RolePolicyInput struct {
	Role   string `json:"role" validate:"required,max=64"`
	Object string `json:"object" validate:"required,max=255"`
	Action string `json:"action" validate:"required,max=32"`
}

// NewPolicyService creates the policy service; a nil store answers ErrPolicyStoreUnavailable
func NewPolicyService(store PolicyStore, authorizer Authorizer) *PolicyService {
	return &PolicyService{store: store, authorizer: authorizer}
}

// ListRoles registered roles
func (s *PolicyService) ListRoles(actor Actor) ([]string, error) {
	if err := s.guard(actor); err != nil {
		return nil, err
	}
	return s.store.ListRoles()
}

// RolePolicies direct rules of a known role
func (s *PolicyService) RolePolicies(role string, actor Actor) ([]authz.Policy, error) {
	if err := s.guard(actor); err != nil {
		return nil, err
	}
	if err := s.requireRole(role); err != nil {
		return nil, err
	}
	return s.store.RolePolicies(role)
}

// Grant adds a rule, creating the role when new, and returns the role's rules
func (s *PolicyService) Grant(input RolePolicyInput, actor Actor) ([]authz.Policy, error) {
	if err := s.guard(actor); err != nil {
		return nil, err
	}
	input, err := s.editable(input)
	if err != nil {
		return nil, err
	}
	if err := s.store.GrantRolePolicy(input.Role, input.Object, input.Action); err != nil {
		return nil, err
	}
	logger.Infow("authz_policy_granted", "role", input.Role, "object", input.Object, "action", input.Action, "actor_id", actor.ID)
	return s.store.RolePolicies(input.Role)
}

// Revoke removes a rule of a known role and returns what is left
func (s *PolicyService) Revoke(input RolePolicyInput, actor Actor) ([]authz.Policy, error) {
	if err := s.guard(actor); err != nil {
		return nil, err
	}
	input, err := s.editable(input)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(input.Role); err != nil {
		return nil, err
	}
	if err := s.store.RevokeRolePolicy(input.Role, input.Object, input.Action); err != nil {
		return nil, err
	}
	logger.Infow("authz_policy_revoked", "role", input.Role, "object", input.Object, "action", input.Action, "actor_id", actor.ID)
	return s.store.RolePolicies(input.Role)
}

// DeleteRole removes a custom role; builtin staff roles stay
func (s *PolicyService) DeleteRole(role string, actor Actor) error {
	if err := s.guard(actor); err != nil {
		return err
	}
	role = strings.TrimSpace(role)
	if authz.IsBuiltinRole(role) {
		return invalidField("role", fmt.Sprintf("builtin role %s cannot be deleted", role))
	}
	if err := s.requireRole(role); err != nil {
		return err
	}
	if err := s.store.DeleteRole(role); err != nil {
		return err
	}
	logger.Infow("authz_role_deleted", "role", role, "actor_id", actor.ID)
	return nil
}

func (s *PolicyService) guard(actor Actor) error {
	if err := requirePermission(s.authorizer, actor, authz.PermManagePolicies); err != nil {
		return err
	}
	if s.store == nil {
		return ErrPolicyStoreUnavailable
	}
	return nil
}

// editable validates input; the admin wildcard is fixed so nobody can lock administrators out
func (s *PolicyService) editable(input RolePolicyInput) (RolePolicyInput, error) {
	input.Role = strings.TrimSpace(input.Role)
	input.Object = strings.TrimSpace(input.Object)
	input.Action = strings.TrimSpace(input.Action)
	if err := validateInput(input); err != nil {
		return input, err
	}
	if rolePrefixed(input.Role) == rolePrefixed(constants.RoleAdmin) {
		return input, invalidField("role", "admin rules are fixed")
	}
	return input, nil
}

func (s *PolicyService) requireRole(role string) error {
	if strings.TrimSpace(role) == "" {
		return invalidField("role", "role is required")
	}
	ok, err := s.store.HasRole(role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoleNotFound
	}
	return nil
}

func rolePrefixed(role string) string {
	subject, _ := authz.NormalizeRole(role)
	return subject
}
