package api

import (
	"strconv"
	"strings"

	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// ListProducts GET /products
func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	onlyActive := c.DefaultQuery("only_active", "true") != "false"

	products, total, err := h.ProductService.List(strings.TrimSpace(c.Query("search")), onlyActive, page, pageSize)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "product fetch failed", err)
		return
	}
	response.SuccessWithPage(c, products, response.BuildPagination(page, pageSize, total))
}

// CreateProduct POST /products
func (h *Handler) CreateProduct(c *gin.Context) {
	var req service.CreateProductInput
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.ProductService.Create(req)
	if err != nil {
		handlershared.RespondDomainError(c, err, "product create failed")
		return
	}
	response.Success(c, product)
}

// UpdateProductPrice PUT /products/:id/price
func (h *Handler) UpdateProductPrice(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req service.UpdatePriceInput
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.ProductService.UpdatePrice(c.Request.Context(), id, req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "product update failed")
		return
	}
	response.Success(c, product)
}

// ListLowStock GET /products/low-stock
func (h *Handler) ListLowStock(c *gin.Context) {
	products, err := h.ProductService.ListLowStock()
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "product fetch failed", err)
		return
	}
	response.Success(c, products)
}

// RegisterPurchase POST /purchases
func (h *Handler) RegisterPurchase(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	var req service.RegisterPurchaseInput
	if !bindJSON(c, &req) {
		return
	}
	purchase, err := h.PurchaseService.Register(c.Request.Context(), req, actor)
	if err != nil {
		handlershared.RespondDomainError(c, err, "purchase register failed")
		return
	}
	response.Success(c, purchase)
}
