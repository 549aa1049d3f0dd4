package service

import (
	"context"
	"strings"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"
)

// ProductService product catalogue. Stock is owned by StockService.
type ProductService struct {
	repo       repository.ProductRepository
	stock      *StockService
	authorizer Authorizer
}

// NewProductService creates the product service
func NewProductService(repo repository.ProductRepository, stock *StockService, authorizer Authorizer) *ProductService {
	return &ProductService{repo: repo, stock: stock, authorizer: authorizer}
}

// CreateProductInput create product input
type CreateProductInput struct {
	Name     string       `json:"name" validate:"required,max=200"`
	SKU      string       `json:"sku" validate:"max=64"`
	Stock    int          `json:"stock" validate:"gte=0"`
	MinStock int          `json:"min_stock" validate:"gte=0"`
	Price    models.Money `json:"price"`
	Cost     models.Money `json:"cost"`
	IsActive *bool        `json:"is_active"`
}

// UpdatePriceInput update price input
type UpdatePriceInput struct {
	Price models.Money `json:"price"`
}

// Create adds a product with its opening stock
func (s *ProductService) Create(input CreateProductInput) (*models.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var problems []Problem
	if input.Price.IsNegative() {
		problems = append(problems, Problem{Code: ProblemInvalidField, Field: "price", Message: "price cannot be negative"})
	}
	if input.Cost.IsNegative() {
		problems = append(problems, Problem{Code: ProblemInvalidField, Field: "cost", Message: "cost cannot be negative"})
	}
	if len(problems) > 0 {
		return nil, newDomainError(ErrInvalidInput, problems...)
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := &models.Product{
		Name:     strings.TrimSpace(input.Name),
		SKU:      strings.TrimSpace(input.SKU),
		Stock:    input.Stock,
		MinStock: input.MinStock,
		Price:    input.Price,
		Cost:     input.Cost,
		Active:   active,
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// List pages through the catalogue
func (s *ProductService) List(search string, onlyActive bool, page, pageSize int) ([]models.Product, int64, error) {
	return s.repo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     search,
		OnlyActive: onlyActive,
	})
}

// Get returns ErrProductNotFound when absent
func (s *ProductService) Get(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// UpdatePrice changes the list price; existing order items keep their unit price
func (s *ProductService) UpdatePrice(ctx context.Context, id uint, input UpdatePriceInput, actor Actor) (*models.Product, error) {
	if err := requirePermission(s.authorizer, actor, authz.PermUpdateProductPrice); err != nil {
		return nil, err
	}
	if input.Price.IsNegative() {
		return nil, invalidField("price", "price cannot be negative")
	}
	product, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	old := product.Price
	if err := s.repo.UpdateFields(id, map[string]interface{}{"price": input.Price}); err != nil {
		return nil, err
	}
	product.Price = input.Price
	logger.Infow("product_price_updated",
		"product_id", id,
		"old_price", old.String(),
		"new_price", input.Price.String(),
		"actor_id", actor.ID,
	)
	return product, nil
}

// ListLowStock active products at or below their minimum
func (s *ProductService) ListLowStock() ([]models.Product, error) {
	return s.stock.ListLowStock()
}
