package api

import (
	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// GrantPolicyRequest rule to add to a role
type GrantPolicyRequest struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// ListRoles GET /authz/roles
func (h *Handler) ListRoles(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	roles, err := h.PolicyService.ListRoles(actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "role list failed")
		return
	}
	response.Success(c, roles)
}

// ListRolePolicies GET /authz/roles/:role/policies
func (h *Handler) ListRolePolicies(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	policies, err := h.PolicyService.RolePolicies(c.Param("role"), actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "role policy list failed")
		return
	}
	response.Success(c, policies)
}

// GrantRolePolicy POST /authz/roles/:role/policies
func (h *Handler) GrantRolePolicy(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	var req GrantPolicyRequest
	if !bindJSON(c, &req) {
		return
	}
	policies, err := h.PolicyService.Grant(service.RolePolicyInput{
		Role:   c.Param("role"),
		Object: req.Object,
		Action: req.Action,
	}, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "policy grant failed")
		return
	}
	response.Success(c, policies)
}

// RevokeRolePolicy DELETE /authz/roles/:role/policies?object=&action=
func (h *Handler) RevokeRolePolicy(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	policies, err := h.PolicyService.Revoke(service.RolePolicyInput{
		Role:   c.Param("role"),
		Object: c.Query("object"),
		Action: c.Query("action"),
	}, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "policy revoke failed")
		return
	}
	response.Success(c, policies)
}

// DeleteRole DELETE /authz/roles/:role
func (h *Handler) DeleteRole(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	if err := h.PolicyService.DeleteRole(c.Param("role"), actor); err != nil {
		handlershared.RespondDomainError(c, err, "role delete failed")
		return
	}
	response.Success(c, gin.H{"role": c.Param("role")})
}
