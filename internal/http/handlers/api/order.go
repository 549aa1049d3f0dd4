package api

import (
	"strconv"
	"strings"

	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// ChangeStatusRequest status change request
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AssignCourierRequest courier assignment; courier_id 0 unassigns
type AssignCourierRequest struct {
	CourierID     uint `json:"courier_id"`
	AdvanceStatus bool `json:"advance_status"`
}

// CreateOrder POST /orders
func (h *Handler) CreateOrder(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	var req service.CreateOrderInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.OrderService.CreateOrder(c.Request.Context(), req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "order create failed")
		return
	}
	response.Success(c, order)
}

// ListOrders GET /orders
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		CustomerID:    handlershared.QueryUint(c, "customer_id"),
		CourierID:     handlershared.QueryUint(c, "courier_id"),
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
	})
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder GET /orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(id)
	if err != nil {
		handlershared.RespondDomainError(c, err, "order fetch failed")
		return
	}
	response.Success(c, order)
}

// EditOrderItems PUT /orders/:id/items
func (h *Handler) EditOrderItems(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.EditOrderItemsInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.OrderService.EditOrderItems(c.Request.Context(), id, req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "order update failed")
		return
	}
	response.Success(c, order)
}

// ChangeOrderStatus PUT /orders/:id/status
func (h *Handler) ChangeOrderStatus(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.OrderService.ChangeStatus(c.Request.Context(), id, strings.TrimSpace(req.Status), actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "order update failed")
		return
	}
	response.Success(c, order)
}

// AssignOrderCourier PUT /orders/:id/courier
func (h *Handler) AssignOrderCourier(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req AssignCourierRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.OrderService.AssignCourier(c.Request.Context(), id, req.CourierID, req.AdvanceStatus, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "order update failed")
		return
	}
	response.Success(c, order)
}

// UpdateOrderPayment PUT /orders/:id/payment
func (h *Handler) UpdateOrderPayment(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.UpdatePaymentInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.OrderService.UpdatePayment(c.Request.Context(), id, req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "order update failed")
		return
	}
	response.Success(c, order)
}

// DeleteOrder DELETE /orders/:id; body optional, restore_stock may also come as a query value
func (h *Handler) DeleteOrder(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.DeleteOrderInput
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	} else {
		req.RestoreStock = c.Query("restore_stock") == "true"
		req.Reason = strings.TrimSpace(c.Query("reason"))
	}
	archived, err := h.OrderService.DeleteOrder(c.Request.Context(), id, req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "order delete failed")
		return
	}
	response.Success(c, archived)
}

// ListOrderHistory GET /orders/:id/history
func (h *Handler) ListOrderHistory(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	history, err := h.OrderService.ListHistory(id)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "order history fetch failed", err)
		return
	}
	response.Success(c, history)
}

// ListDeletedOrders GET /deleted-orders
func (h *Handler) ListDeletedOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	rows, total, err := h.OrderService.ListDeletedOrders(repository.DeletedOrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: handlershared.QueryUint(c, "customer_id"),
	})
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "deleted order fetch failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
