package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"gorm.io/gorm"
)

// PurchaseService supplier receipts; received goods go back through the stock ledger
type PurchaseService struct {
	tx           repository.Transactor
	purchaseRepo repository.PurchaseRepository
	productRepo  repository.ProductRepository
	stock        *StockService
}

// PurchaseItemInput purchase line input
type PurchaseItemInput struct {
	ProductID uint         `json:"product_id" validate:"required"`
	Quantity  int          `json:"quantity" validate:"gt=0"`
	UnitCost  models.Money `json:"unit_cost"`
}

// RegisterPurchaseInput register purchase input
type RegisterPurchaseInput struct {
	Supplier string              `json:"supplier" validate:"required,max=200"`
	Notes    string              `json:"notes" validate:"max=2000"`
	Items    []PurchaseItemInput `json:"items" validate:"required,min=1,dive"`
}

// NewPurchaseService creates the purchase service
func NewPurchaseService(tx repository.Transactor, purchaseRepo repository.PurchaseRepository, productRepo repository.ProductRepository, stock *StockService) *PurchaseService {
	return &PurchaseService{
		tx:           tx,
		purchaseRepo: purchaseRepo,
		productRepo:  productRepo,
		stock:        stock,
	}
}

// Register adds the received quantities to stock and records the last unit cost per product
func (s *PurchaseService) Register(ctx context.Context, input RegisterPurchaseInput, actor Actor) (*models.Purchase, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var problems []Problem
	for i, item := range input.Items {
		if item.UnitCost.IsNegative() {
			problems = append(problems, Problem{
				Code:      ProblemInvalidField,
				Field:     fmt.Sprintf("items[%d].unit_cost", i),
				ProductID: item.ProductID,
				Message:   "unit cost cannot be negative",
			})
		}
	}
	if len(problems) > 0 {
		return nil, newDomainError(ErrInvalidInput, problems...)
	}

	purchase := &models.Purchase{
		Supplier:  strings.TrimSpace(input.Supplier),
		Notes:     strings.TrimSpace(input.Notes),
		CreatedBy: actor.Ref(),
	}
	items := make([]models.PurchaseItem, 0, len(input.Items))
	lines := make([]StockLine, 0, len(input.Items))
	lastCost := make(map[uint]models.Money, len(input.Items))
	for _, item := range input.Items {
		subtotal := item.UnitCost.Times(item.Quantity)
		purchase.Total = purchase.Total.Plus(subtotal)
		items = append(items, models.PurchaseItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
			Subtotal:  subtotal,
		})
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
		lastCost[item.ProductID] = item.UnitCost
	}

	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.stock.RestoreInTx(tx, lines); err != nil {
			return err
		}
		productRepo := s.productRepo.WithTx(tx)
		ids := make([]uint, 0, len(lastCost))
		for id := range lastCost {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if err := productRepo.UpdateFields(id, map[string]interface{}{"cost": lastCost[id]}); err != nil {
				return err
			}
		}
		return s.purchaseRepo.WithTx(tx).Create(purchase, items)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("purchase_registered",
		"purchase_id", purchase.ID,
		"supplier", purchase.Supplier,
		"items", len(items),
		"total", purchase.Total.String(),
		"actor_id", actor.ID,
	)
	return purchase, nil
}

// Get loads a purchase with its items
func (s *PurchaseService) Get(id uint) (*models.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	return purchase, nil
}
