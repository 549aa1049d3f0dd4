package api

import (
	"strconv"
	"strings"

	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// ListCustomers GET /customers
func (h *Handler) ListCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	customers, total, err := h.CustomerService.List(strings.TrimSpace(c.Query("search")), page, pageSize)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "customer fetch failed", err)
		return
	}
	response.SuccessWithPage(c, customers, response.BuildPagination(page, pageSize, total))
}

// CreateCustomer POST /customers
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerInput
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.CustomerService.Create(req)
	if err != nil {
		handlershared.RespondDomainError(c, err, "customer create failed")
		return
	}
	response.Success(c, customer)
}

// GetCustomer GET /customers/:id
func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	customer, err := h.CustomerService.Get(id)
	if err != nil {
		handlershared.RespondDomainError(c, err, "customer fetch failed")
		return
	}
	response.Success(c, customer)
}

// GetCustomerBalance GET /customers/:id/balance
func (h *Handler) GetCustomerBalance(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	customer, err := h.CustomerService.Get(id)
	if err != nil {
		handlershared.RespondDomainError(c, err, "customer fetch failed")
		return
	}
	payments, err := h.PaymentService.ListByCustomer(id)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "payment fetch failed", err)
		return
	}
	response.Success(c, gin.H{
		"customer_id":  customer.ID,
		"balance":      customer.Balance,
		"credit_limit": customer.CreditLimit,
		"payments":     payments,
	})
}

// RecomputeBalanceRequest recompute request
type RecomputeBalanceRequest struct {
	Repair bool `json:"repair"`
}

// RecomputeCustomerBalance POST /customers/:id/balance/recompute
func (h *Handler) RecomputeCustomerBalance(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req RecomputeBalanceRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	report, err := h.CustomerService.RecomputeBalance(c.Request.Context(), id, req.Repair, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "balance recompute failed")
		return
	}
	response.Success(c, gin.H{
		"report":  report,
		"in_sync": report.InSync(),
	})
}

// CreatePayment POST /payments
func (h *Handler) CreatePayment(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	var req service.CreatePaymentInput
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.PaymentService.Create(c.Request.Context(), req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "payment create failed")
		return
	}
	response.Success(c, payment)
}

// DeletePayment DELETE /payments/:id
func (h *Handler) DeletePayment(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.PaymentService.Delete(c.Request.Context(), id, actor); err != nil {
		handlershared.RespondDomainError(c, err, "payment delete failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
