package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestAllowRoleWithGrantedPolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("supervisor", "/exceptions", "resolve"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}

	allow, err := svc.AllowRole("supervisor", PermResolveException)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.AllowRole("supervisor", PermVoidException)
	if err != nil {
		t.Fatalf("deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}

	if err := svc.RevokeRolePolicy("supervisor", "/exceptions", "RESOLVE"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	allow, _ = svc.AllowRole("supervisor", PermResolveException)
	if allow {
		t.Fatalf("expected revoked policy to deny")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/exceptions/:id", want: "/exceptions/:id"},
		{in: "/exceptions", want: "/exceptions"},
		{in: "reconciliations", want: "/reconciliations"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// second run must be idempotent
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles again failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:admin":   true,
		"role:manager": true,
		"role:seller":  true,
		"role:courier": true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	cases := []struct {
		role       string
		permission Permission
		want       bool
	}{
		{role: constants.RoleManager, permission: PermResolveException, want: true},
		{role: constants.RoleManager, permission: PermReviewReconciliation, want: true},
		{role: constants.RoleManager, permission: PermDeleteOrder, want: true},
		{role: constants.RoleSeller, permission: PermDeleteOrder, want: false},
		{role: constants.RoleCourier, permission: PermDeleteOrder, want: false},
		{role: constants.RoleManager, permission: PermManagePolicies, want: false},
		{role: constants.RoleAdmin, permission: PermManagePolicies, want: true},
		{role: constants.RoleAdmin, permission: PermVoidException, want: true},
		{role: constants.RoleCourier, permission: PermResolveException, want: false},
		{role: constants.RoleSeller, permission: PermUpdateProductPrice, want: false},
		{role: "", permission: PermResolveException, want: false},
	}
	for _, item := range cases {
		got, err := svc.AllowRole(item.role, item.permission)
		if err != nil {
			t.Fatalf("allow %s failed: %v", item.role, err)
		}
		if got != item.want {
			t.Fatalf("role=%s permission=%+v want=%v got=%v", item.role, item.permission, item.want, got)
		}
	}
}

func TestStaticPolicyMatchesBuiltinMatrix(t *testing.T) {
	policy := StaticPolicy{}
	if ok, _ := policy.AllowRole(constants.RoleAdmin, PermManagePolicies); !ok {
		t.Fatalf("admin should hold every permission")
	}
	if ok, _ := policy.AllowRole(constants.RoleManager, PermVoidException); !ok {
		t.Fatalf("manager should void exceptions")
	}
	if ok, _ := policy.AllowRole(constants.RoleManager, PermManagePolicies); ok {
		t.Fatalf("manager should not manage policies")
	}
	if ok, _ := policy.AllowRole(constants.RoleCourier, PermReviewReconciliation); ok {
		t.Fatalf("courier should not review")
	}
}

func TestRolePoliciesAndDeleteRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	if err := svc.GrantRolePolicy("supervisor", "/api/v1/exceptions", "void"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	exists, err := svc.HasRole("supervisor")
	if err != nil || !exists {
		t.Fatalf("supervisor should exist: %v %v", exists, err)
	}
	policies, err := svc.RolePolicies("role:supervisor")
	if err != nil {
		t.Fatalf("role policies failed: %v", err)
	}
	if len(policies) != 1 || policies[0].Object != "/exceptions" || policies[0].Action != "VOID" || policies[0].Subject != "role:supervisor" {
		t.Fatalf("unexpected policies: %+v", policies)
	}
	managerPolicies, err := svc.RolePolicies(constants.RoleManager)
	if err != nil || len(managerPolicies) != len(ManagerPermissions()) {
		t.Fatalf("manager should hold every manager permission: %v %+v", err, managerPolicies)
	}

	if err := svc.DeleteRole("supervisor"); err != nil {
		t.Fatalf("delete role failed: %v", err)
	}
	if exists, _ := svc.HasRole("supervisor"); exists {
		t.Fatalf("supervisor should be gone")
	}
	if allow, _ := svc.AllowRole("supervisor", PermVoidException); allow {
		t.Fatalf("deleted role keeps no rules")
	}
	if err := svc.DeleteRole(roleAnchor); err == nil {
		t.Fatalf("anchor role must not be deletable")
	}
	if !IsBuiltinRole("manager") || !IsBuiltinRole("role:courier") || IsBuiltinRole("supervisor") {
		t.Fatalf("unexpected builtin role classification")
	}
}
