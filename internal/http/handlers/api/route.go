package api

import (
	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRoute POST /routes
func (h *Handler) CreateRoute(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	var req service.CreateRouteInput
	if !bindJSON(c, &req) {
		return
	}
	route, err := h.RouteService.CreateRoute(c.Request.Context(), req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "route create failed")
		return
	}
	response.Success(c, route)
}

// GetRoute GET /routes/:id
func (h *Handler) GetRoute(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	route, err := h.RouteService.GetRoute(id)
	if err != nil {
		handlershared.RespondDomainError(c, err, "route fetch failed")
		return
	}
	response.Success(c, route)
}

// MarkStopDelivered POST /routes/:id/stops/:order_id/deliver
func (h *Handler) MarkStopDelivered(c *gin.Context) {
	h.markStop(c, true)
}

// MarkStopFailed POST /routes/:id/stops/:order_id/fail
func (h *Handler) MarkStopFailed(c *gin.Context) {
	h.markStop(c, false)
}

func (h *Handler) markStop(c *gin.Context, delivered bool) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	routeID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	orderID, ok := handlershared.ParamUint(c, "order_id")
	if !ok {
		return
	}
	var (
		route *models.DeliveryRoute
		err   error
	)
	if delivered {
		route, err = h.RouteService.MarkStopDelivered(c.Request.Context(), routeID, orderID, actor)
	} else {
		route, err = h.RouteService.MarkStopFailed(c.Request.Context(), routeID, orderID, actor)
	}
	if err != nil {
		handlershared.RespondDomainError(c, err, "route stop update failed")
		return
	}
	response.Success(c, route)
}
