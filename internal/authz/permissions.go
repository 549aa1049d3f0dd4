package authz

import "github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"

// Permission a privileged action on a resource
type Permission struct {
	Object string `json:"object"`
	Action string `json:"action"`
}

var (
	PermResolveException        = Permission{Object: "/exceptions", Action: "RESOLVE"}
	PermVoidException           = Permission{Object: "/exceptions", Action: "VOID"}
	PermReviewReconciliation    = Permission{Object: "/reconciliations", Action: "REVIEW"}
	PermManageAnyReconciliation = Permission{Object: "/reconciliations", Action: "MANAGE_ANY"}
	PermManageAnyRoute          = Permission{Object: "/routes", Action: "MANAGE_ANY"}
	PermUpdateProductPrice      = Permission{Object: "/products", Action: "UPDATE_PRICE"}
	PermDeletePayment           = Permission{Object: "/payments", Action: "DELETE"}
	PermDeleteOrder             = Permission{Object: "/orders", Action: "DELETE"}
	PermRepairBalance           = Permission{Object: "/balances", Action: "REPAIR"}
	PermManagePolicies          = Permission{Object: "/authz", Action: "MANAGE"}
)

// ManagerPermissions everything a manager may do beyond regular staff
func ManagerPermissions() []Permission {
	return []Permission{
		PermResolveException,
		PermVoidException,
		PermReviewReconciliation,
		PermManageAnyReconciliation,
		PermManageAnyRoute,
		PermUpdateProductPrice,
		PermDeletePayment,
		PermDeleteOrder,
		PermRepairBalance,
	}
}

// StaticPolicy in-memory fallback used when no casbin store is wired
type StaticPolicy struct{}

// AllowRole admins may do anything, managers hold ManagerPermissions
func (StaticPolicy) AllowRole(role string, permission Permission) (bool, error) {
	switch role {
	case constants.RoleAdmin:
		return true, nil
	case constants.RoleManager:
		for _, p := range ManagerPermissions() {
			if p == permission {
				return true, nil
			}
		}
	}
	return false, nil
}
