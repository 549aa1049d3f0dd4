package api

import (
	"strings"
	"time"

	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

const statsDateLayout = "2006-01-02"

// CreateReconciliationRequest opens a reconciliation for a route
type CreateReconciliationRequest struct {
	RouteID   uint  `json:"route_id" binding:"required"`
	CourierID *uint `json:"courier_id"`
}

// CreateReconciliation POST /reconciliations
func (h *Handler) CreateReconciliation(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	var req CreateReconciliationRequest
	if !bindJSON(c, &req) {
		return
	}
	reconciliation, err := h.ReconciliationService.CreateFromRoute(c.Request.Context(), service.CreateReconciliationInput{
		RouteID:   req.RouteID,
		CourierID: req.CourierID,
	}, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "reconciliation create failed")
		return
	}
	response.Success(c, reconciliation)
}

// GetReconciliation GET /reconciliations/:id
func (h *Handler) GetReconciliation(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	reconciliation, err := h.ReconciliationService.Get(id)
	if err != nil {
		handlershared.RespondDomainError(c, err, "reconciliation fetch failed")
		return
	}
	response.Success(c, reconciliation)
}

// SubmitReconciliation POST /reconciliations/:id/submit
func (h *Handler) SubmitReconciliation(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.SubmitReconciliationInput
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ReconciliationService.Submit(c.Request.Context(), id, req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "reconciliation submit failed")
		return
	}
	response.Success(c, result)
}

// AddReconciliationAdjustment POST /reconciliations/:id/adjustments
func (h *Handler) AddReconciliationAdjustment(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.AddAdjustmentInput
	if !bindJSON(c, &req) {
		return
	}
	adjustment, err := h.ReconciliationService.AddAdjustment(c.Request.Context(), id, req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "adjustment create failed")
		return
	}
	response.Success(c, adjustment)
}

// ReviewReconciliation POST /reconciliations/:id/review
func (h *Handler) ReviewReconciliation(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.ReviewReconciliationInput
	if !bindJSON(c, &req) {
		return
	}
	reconciliation, err := h.ReconciliationService.Review(c.Request.Context(), id, req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "reconciliation review failed")
		return
	}
	response.Success(c, reconciliation)
}

// ReconciliationStatistics GET /reconciliations/statistics?date_from=&date_to=&courier_id=
func (h *Handler) ReconciliationStatistics(c *gin.Context) {
	filter := service.ReconciliationStatsFilter{CourierID: handlershared.QueryUint(c, "courier_id")}
	var ok bool
	if filter.DateFrom, ok = parseStatsDate(c, "date_from"); !ok {
		return
	}
	if filter.DateTo, ok = parseStatsDate(c, "date_to"); !ok {
		return
	}
	stats, err := h.ReconciliationService.Statistics(c.Request.Context(), filter)
	if err != nil {
		handlershared.RespondDomainError(c, err, "reconciliation statistics failed")
		return
	}
	response.Success(c, stats)
}

func parseStatsDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	value, err := time.Parse(statsDateLayout, raw)
	if err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return nil, false
	}
	return &value, true
}
