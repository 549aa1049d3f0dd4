package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/metrics"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/queue"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"gorm.io/gorm"
)

// StockLine a product quantity to move in or out of stock
type StockLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// StockService the stock ledger. Every batch is all-or-nothing.
type StockService struct {
	tx          repository.Transactor
	productRepo repository.ProductRepository
	queueClient *queue.Client
	lowAlerts   bool
}

// NewStockService creates the stock ledger
func NewStockService(tx repository.Transactor, productRepo repository.ProductRepository, queueClient *queue.Client, lowAlerts bool) *StockService {
	return &StockService{
		tx:          tx,
		productRepo: productRepo,
		queueClient: queueClient,
		lowAlerts:   lowAlerts,
	}
}

// DecrementAtomic removes every line from stock in its own transaction
func (s *StockService) DecrementAtomic(ctx context.Context, lines []StockLine) error {
	started := time.Now()
	var low []models.Product
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		low, err = s.DecrementInTx(tx, lines)
		return err
	})
	metrics.StockMovementLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		return err
	}
	s.NotifyLowStock(low)
	return nil
}

// RestoreAtomic adds every line back to stock in its own transaction
func (s *StockService) RestoreAtomic(ctx context.Context, lines []StockLine) error {
	started := time.Now()
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		return s.RestoreInTx(tx, lines)
	})
	metrics.StockMovementLatency.Observe(time.Since(started).Seconds())
	return err
}

// DecrementInTx validates the whole batch under row locks, then applies it.
// It returns the touched products that ended at or below their minimum.
func (s *StockService) DecrementInTx(tx *gorm.DB, lines []StockLine) ([]models.Product, error) {
	merged, problems := mergeStockLines(lines)
	if len(merged) == 0 && len(problems) == 0 {
		return nil, nil
	}
	repo := s.productRepo.WithTx(tx)
	products, err := repo.ListByIDsForUpdate(stockLineIDs(merged))
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, line := range merged {
		product, ok := byID[line.ProductID]
		if !ok {
			problems = append(problems, productNotFoundProblem(line))
			continue
		}
		if product.Stock < line.Quantity {
			problems = append(problems, Problem{
				Code:      ProblemInsufficientStock,
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: product.Stock,
				Message:   fmt.Sprintf("product %d (%s): requested %d, available %d", product.ID, product.Name, line.Quantity, product.Stock),
			})
		}
	}
	if len(problems) > 0 {
		return nil, rejectStock(problems)
	}

	var low []models.Product
	for _, line := range merged {
		affected, err := repo.DecrementStock(line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// stock moved between the locked read and the write
			product := byID[line.ProductID]
			return nil, rejectStock([]Problem{{
				Code:      ProblemInsufficientStock,
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: product.Stock,
				Message:   fmt.Sprintf("product %d: stock changed concurrently", line.ProductID),
			}})
		}
		product := byID[line.ProductID]
		product.Stock -= line.Quantity
		if product.BelowMinimum() {
			low = append(low, *product)
		}
	}
	return low, nil
}

// RestoreInTx adds the batch back; every product must exist and every quantity be positive
func (s *StockService) RestoreInTx(tx *gorm.DB, lines []StockLine) error {
	merged, problems := mergeStockLines(lines)
	if len(merged) == 0 && len(problems) == 0 {
		return nil
	}
	repo := s.productRepo.WithTx(tx)
	products, err := repo.ListByIDsForUpdate(stockLineIDs(merged))
	if err != nil {
		return err
	}
	found := make(map[uint]bool, len(products))
	for _, p := range products {
		found[p.ID] = true
	}
	for _, line := range merged {
		if !found[line.ProductID] {
			problems = append(problems, productNotFoundProblem(line))
		}
	}
	if len(problems) > 0 {
		return rejectStock(problems)
	}
	for _, line := range merged {
		affected, err := repo.IncrementStock(line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			return rejectStock([]Problem{productNotFoundProblem(line)})
		}
	}
	return nil
}

// NotifyLowStock enqueues an alert for products at or below minimum; call after commit
func (s *StockService) NotifyLowStock(products []models.Product) {
	if !s.lowAlerts || len(products) == 0 {
		return
	}
	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	metrics.LowStockAlertsTotal.Add(float64(len(ids)))
	if err := s.queueClient.EnqueueStockLowAlert(queue.StockLowAlertPayload{ProductIDs: ids}); err != nil {
		logger.Warnw("stock_low_alert_enqueue_failed", "product_ids", ids, "error", err)
	}
}

// ListLowStock products at or below their minimum
func (s *StockService) ListLowStock() ([]models.Product, error) {
	return s.productRepo.ListLowStock()
}

// mergeStockLines sums duplicate products and reports non positive quantities
func mergeStockLines(lines []StockLine) ([]StockLine, []Problem) {
	var problems []Problem
	index := make(map[uint]int, len(lines))
	merged := make([]StockLine, 0, len(lines))
	for i, line := range lines {
		if line.ProductID == 0 {
			problems = append(problems, Problem{
				Code:    ProblemProductNotFound,
				Field:   fmt.Sprintf("items[%d].product_id", i),
				Message: fmt.Sprintf("line %d: product id is required", i),
			})
			continue
		}
		if line.Quantity <= 0 {
			problems = append(problems, Problem{
				Code:      ProblemInvalidQuantity,
				Field:     fmt.Sprintf("items[%d].quantity", i),
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Message:   fmt.Sprintf("product %d: quantity must be greater than zero", line.ProductID),
			})
			continue
		}
		if pos, ok := index[line.ProductID]; ok {
			merged[pos].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, problems
}

func stockLineIDs(lines []StockLine) []uint {
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func productNotFoundProblem(line StockLine) Problem {
	return Problem{
		Code:      ProblemProductNotFound,
		ProductID: line.ProductID,
		Requested: line.Quantity,
		Message:   fmt.Sprintf("product %d not found", line.ProductID),
	}
}

// rejectStock picks the error kind: malformed input first, then unknown products, then shortage
func rejectStock(problems []Problem) error {
	kind := ErrInsufficientStock
	for _, p := range problems {
		if p.Code == ProblemInvalidQuantity {
			kind = ErrInvalidInput
			break
		}
		if p.Code == ProblemProductNotFound {
			kind = ErrProductNotFound
		}
	}
	for _, p := range problems {
		metrics.StockRejectionsTotal.WithLabelValues(p.Code).Inc()
	}
	return newDomainError(kind, problems...)
}
