package service

import (
	"errors"
	"testing"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
)

func setupPolicyService(t *testing.T, env *serviceTestEnv) *PolicyService {
	t.Helper()
	store, err := authz.NewService(env.db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := store.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	return NewPolicyService(store, store)
}

func TestPolicyServiceGrantRevokeAndDelete(t *testing.T) {
	env := setupServiceTest(t)
	policies := setupPolicyService(t, env)

	granted, err := policies.Grant(RolePolicyInput{Role: "supervisor", Object: "/api/v1/exceptions", Action: "resolve"}, env.admin)
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if len(granted) != 1 || granted[0].Object != "/exceptions" || granted[0].Action != "RESOLVE" {
		t.Fatalf("unexpected rules: %+v", granted)
	}
	roles, err := policies.ListRoles(env.admin)
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	found := false
	for _, role := range roles {
		if role == "role:supervisor" {
			found = true
		}
	}
	if !found {
		t.Fatalf("supervisor missing from %v", roles)
	}

	left, err := policies.Revoke(RolePolicyInput{Role: "supervisor", Object: "/exceptions", Action: "RESOLVE"}, env.admin)
	if err != nil || len(left) != 0 {
		t.Fatalf("revoke failed: %v %+v", err, left)
	}
	if err := policies.DeleteRole("supervisor", env.admin); err != nil {
		t.Fatalf("delete role failed: %v", err)
	}
	if _, err := policies.RolePolicies("supervisor", env.admin); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("want role not found got %v", err)
	}
}

func TestPolicyServiceGuards(t *testing.T) {
	env := setupServiceTest(t)
	policies := setupPolicyService(t, env)
	manager := Actor{ID: seedUser(t, env.db, "Encargado", constants.RoleManager).ID, Role: constants.RoleManager}

	for _, actor := range []Actor{env.seller, manager} {
		if _, err := policies.ListRoles(actor); !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s cannot manage policies, got %v", actor.Role, err)
		}
	}

	cases := []struct {
		name string
		call func() error
		want error
	}{
		{"builtin role delete", func() error { return policies.DeleteRole(constants.RoleCourier, env.admin) }, ErrInvalidInput},
		{"admin rules fixed", func() error {
			_, err := policies.Revoke(RolePolicyInput{Role: constants.RoleAdmin, Object: "/*", Action: "*"}, env.admin)
			return err
		}, ErrInvalidInput},
		{"missing action", func() error {
			_, err := policies.Grant(RolePolicyInput{Role: "supervisor", Object: "/exceptions"}, env.admin)
			return err
		}, ErrInvalidInput},
		{"unknown role revoke", func() error {
			_, err := policies.Revoke(RolePolicyInput{Role: "ghost", Object: "/exceptions", Action: "VOID"}, env.admin)
			return err
		}, ErrRoleNotFound},
		{"unknown role delete", func() error { return policies.DeleteRole("ghost", env.admin) }, ErrRoleNotFound},
	}
	for _, c := range cases {
		if err := c.call(); !errors.Is(err, c.want) {
			t.Fatalf("%s: want %v got %v", c.name, c.want, err)
		}
	}

	if allow, _ := (authz.StaticPolicy{}).AllowRole(constants.RoleAdmin, authz.PermManagePolicies); !allow {
		t.Fatalf("admin should manage policies")
	}
	static := NewPolicyService(nil, nil)
	if _, err := static.ListRoles(env.admin); !errors.Is(err, ErrPolicyStoreUnavailable) {
		t.Fatalf("static policy has no store, got %v", err)
	}
	if _, err := static.ListRoles(env.seller); !errors.Is(err, ErrForbidden) {
		t.Fatalf("permission is checked before the store, got %v", err)
	}
}
