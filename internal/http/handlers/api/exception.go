package api

import (
	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// VoidExceptionRequest void request
type VoidExceptionRequest struct {
	Notes string `json:"notes"`
}

// RegisterException POST /orders/:id/exceptions
func (h *Handler) RegisterException(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.RegisterExceptionInput
	if !bindJSON(c, &req) {
		return
	}
	req.OrderID = orderID
	exception, err := h.ExceptionService.RegisterException(c.Request.Context(), req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "exception register failed")
		return
	}
	response.Success(c, exception)
}

// ListOrderExceptions GET /orders/:id/exceptions
func (h *Handler) ListOrderExceptions(c *gin.Context) {
	orderID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	exceptions, err := h.ExceptionService.ListByOrder(orderID)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "exception fetch failed", err)
		return
	}
	response.Success(c, exceptions)
}

// ResolveException POST /exceptions/:id/resolve
func (h *Handler) ResolveException(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.ResolveExceptionInput
	if !bindJSON(c, &req) {
		return
	}
	exception, err := h.ExceptionService.ResolveException(c.Request.Context(), id, req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "exception resolve failed")
		return
	}
	response.Success(c, exception)
}

// VoidException POST /exceptions/:id/void
func (h *Handler) VoidException(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req VoidExceptionRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	exception, err := h.ExceptionService.VoidException(c.Request.Context(), id, req.Notes, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "exception void failed")
		return
	}
	response.Success(c, exception)
}

// ListExceptionHistory GET /exceptions/:id/history
func (h *Handler) ListExceptionHistory(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	if _, err := h.ExceptionService.GetException(id); err != nil {
		handlershared.RespondDomainError(c, err, "exception fetch failed")
		return
	}
	history, err := h.ExceptionService.History(id)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "exception history fetch failed", err)
		return
	}
	response.Success(c, history)
}
