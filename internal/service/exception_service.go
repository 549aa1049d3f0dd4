package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/metrics"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"gorm.io/gorm"
)

// ExceptionService partial or failed deliveries of order items
type ExceptionService struct {
	tx            repository.Transactor
	exceptionRepo repository.ExceptionRepository
	orderRepo     repository.OrderRepository
	stock         *StockService
	balance       *BalanceService
	audit         *AuditService
	authorizer    Authorizer
}

// RegisterExceptionInput register exception input
type RegisterExceptionInput struct {
	OrderID          uint   `json:"order_id" validate:"required"`
	OrderItemID      uint   `json:"order_item_id" validate:"required"`
	AffectedQuantity int    `json:"affected_quantity" validate:"gt=0"`
	Reason           string `json:"reason" validate:"required"`
	Description      string `json:"description" validate:"max=2000"`
	PhotoRef         string `json:"photo_ref" validate:"max=500"`
	ReturnStock      bool   `json:"return_stock"`
}

// ResolveExceptionInput resolve exception input
type ResolveExceptionInput struct {
	ResolutionStatus   string `json:"resolution_status" validate:"required"`
	Notes              string `json:"notes" validate:"max=2000"`
	RescheduledOrderID *uint  `json:"rescheduled_order_id"`
}

// NewExceptionService creates the exception handler
func NewExceptionService(
	tx repository.Transactor,
	exceptionRepo repository.ExceptionRepository,
	orderRepo repository.OrderRepository,
	stock *StockService,
	balance *BalanceService,
	audit *AuditService,
	authorizer Authorizer,
) *ExceptionService {
	return &ExceptionService{
		tx:            tx,
		exceptionRepo: exceptionRepo,
		orderRepo:     orderRepo,
		stock:         stock,
		balance:       balance,
		audit:         audit,
		authorizer:    authorizer,
	}
}

// RegisterException takes affected units off an order item and records why
func (s *ExceptionService) RegisterException(ctx context.Context, input RegisterExceptionInput, actor Actor) (*models.DeliveryException, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	input.Reason = strings.TrimSpace(input.Reason)
	if !constants.ValidExceptionReason(input.Reason) {
		return nil, invalidField("reason", fmt.Sprintf("unknown exception reason %q", input.Reason))
	}

	var exception *models.DeliveryException
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		item, err := orderRepo.GetItem(order.ID, input.OrderItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrOrderItemNotFound
		}
		if input.AffectedQuantity > item.Quantity {
			return newDomainError(ErrInvalidInput, Problem{
				Code:      ProblemAffectedQuantity,
				Field:     "affected_quantity",
				ProductID: item.ProductID,
				Requested: input.AffectedQuantity,
				Available: item.Quantity,
				Message:   fmt.Sprintf("affected quantity %d exceeds item quantity %d", input.AffectedQuantity, item.Quantity),
			})
		}

		oldItems := cloneItems(order.Items)
		oldTotal := order.Total
		oldOutstanding := order.Outstanding()
		delivered := item.Quantity - input.AffectedQuantity
		itemRemoved := delivered == 0
		if itemRemoved {
			if err := orderRepo.DeleteItem(item.ID); err != nil {
				return err
			}
		} else {
			item.Quantity = delivered
			item.Recalculate()
			if err := orderRepo.UpdateItem(item); err != nil {
				return err
			}
		}

		stockReturned := input.ReturnStock && constants.ReasonAllowsStockReturn(input.Reason) && order.StockDeducted
		if stockReturned {
			if err := s.stock.RestoreInTx(tx, []StockLine{{ProductID: item.ProductID, Quantity: input.AffectedQuantity}}); err != nil {
				return err
			}
		}

		exception = &models.DeliveryException{
			OrderID:           order.ID,
			OrderItemID:       item.ID,
			ProductID:         item.ProductID,
			UnitPrice:         item.UnitPrice,
			OriginalQuantity:  delivered + input.AffectedQuantity,
			AffectedQuantity:  input.AffectedQuantity,
			DeliveredQuantity: delivered,
			Reason:            input.Reason,
			Description:       strings.TrimSpace(input.Description),
			PhotoRef:          strings.TrimSpace(input.PhotoRef),
			MonetaryImpact:    item.UnitPrice.Times(input.AffectedQuantity),
			ResolutionStatus:  constants.ResolutionPending,
			StockReturned:     stockReturned,
			ItemRemoved:       itemRemoved,
			CreatedBy:         actor.Ref(),
		}
		exceptionRepo := s.exceptionRepo.WithTx(tx)
		if err := exceptionRepo.Create(exception); err != nil {
			return fmt.Errorf("create delivery exception: %w", err)
		}
		if err := exceptionRepo.CreateHistory(&models.DeliveryExceptionHistory{
			ExceptionID: exception.ID,
			Action:      constants.ExceptionActionCreated,
			NewStatus:   constants.ResolutionPending,
			ActorID:     actor.Ref(),
			Notes:       exception.Description,
		}); err != nil {
			return err
		}

		return s.syncOrderTotals(tx, order, oldItems, oldTotal, oldOutstanding, actor,
			fmt.Sprintf("exception %d registered: %s, product %d x%d", exception.ID, exception.Reason, exception.ProductID, exception.AffectedQuantity))
	})
	if err != nil {
		return nil, err
	}
	metrics.DeliveryExceptionsTotal.WithLabelValues(exception.Reason).Inc()
	logger.Infow("delivery_exception_registered",
		"exception_id", exception.ID,
		"order_id", exception.OrderID,
		"reason", exception.Reason,
		"affected_quantity", exception.AffectedQuantity,
		"stock_returned", exception.StockReturned,
		"actor_id", actor.ID,
	)
	return exception, nil
}

// ResolveException closes a pending exception with a terminal resolution
func (s *ExceptionService) ResolveException(ctx context.Context, exceptionID uint, input ResolveExceptionInput, actor Actor) (*models.DeliveryException, error) {
	if err := requirePermission(s.authorizer, actor, authz.PermResolveException); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	status := strings.TrimSpace(input.ResolutionStatus)
	if !constants.ValidResolutionTarget(status) {
		return nil, invalidField("resolution_status", fmt.Sprintf("%q is not a resolution status", status))
	}
	if status == constants.ResolutionRescheduled && input.RescheduledOrderID == nil {
		return nil, invalidField("rescheduled_order_id", "a rescheduled exception needs the order it moved to")
	}
	if status != constants.ResolutionRescheduled && input.RescheduledOrderID != nil {
		return nil, invalidField("rescheduled_order_id", fmt.Sprintf("rescheduled_order_id only applies to %s", constants.ResolutionRescheduled))
	}

	var exception *models.DeliveryException
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		exceptionRepo := s.exceptionRepo.WithTx(tx)
		var err error
		exception, err = exceptionRepo.GetByIDForUpdate(exceptionID)
		if err != nil {
			return err
		}
		if exception == nil {
			return ErrExceptionNotFound
		}
		if exception.ResolutionStatus != constants.ResolutionPending {
			return newDomainError(ErrExceptionNotPending, Problem{
				Code:    "exception_not_pending",
				Message: fmt.Sprintf("exception %d is %s", exception.ID, exception.ResolutionStatus),
			})
		}
		if status == constants.ResolutionRescheduled {
			target, err := s.orderRepo.WithTx(tx).GetByID(*input.RescheduledOrderID)
			if err != nil {
				return err
			}
			if target == nil {
				return ErrOrderNotFound
			}
			exception.RescheduledOrderID = input.RescheduledOrderID
		}

		now := time.Now()
		exception.ResolutionStatus = status
		exception.ResolutionNotes = strings.TrimSpace(input.Notes)
		exception.ResolvedBy = actor.Ref()
		exception.ResolvedAt = &now
		if err := exceptionRepo.Update(exception); err != nil {
			return err
		}
		return exceptionRepo.CreateHistory(&models.DeliveryExceptionHistory{
			ExceptionID: exception.ID,
			Action:      constants.ExceptionActionResolved,
			OldStatus:   constants.ResolutionPending,
			NewStatus:   status,
			ActorID:     actor.Ref(),
			Notes:       exception.ResolutionNotes,
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.DeliveryExceptionTransitionsTotal.WithLabelValues(status).Inc()
	logger.Infow("delivery_exception_resolved", "exception_id", exceptionID, "status", status, "actor_id", actor.ID)
	return exception, nil
}

// VoidException undoes a registered exception: quantity back on the order, stock return reversed
func (s *ExceptionService) VoidException(ctx context.Context, exceptionID uint, notes string, actor Actor) (*models.DeliveryException, error) {
	if err := requirePermission(s.authorizer, actor, authz.PermVoidException); err != nil {
		return nil, err
	}

	var exception *models.DeliveryException
	var low []models.Product
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		exceptionRepo := s.exceptionRepo.WithTx(tx)
		var err error
		exception, err = exceptionRepo.GetByIDForUpdate(exceptionID)
		if err != nil {
			return err
		}
		if exception == nil {
			return ErrExceptionNotFound
		}
		if exception.ResolutionStatus == constants.ResolutionVoided {
			return newDomainError(ErrExceptionVoided, Problem{
				Code:    "exception_voided",
				Message: fmt.Sprintf("exception %d is already voided", exception.ID),
			})
		}

		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(exception.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		oldItems := cloneItems(order.Items)
		oldTotal := order.Total
		oldOutstanding := order.Outstanding()

		item, err := s.voidTarget(orderRepo, order.ID, exception)
		if err != nil {
			return err
		}
		if item == nil {
			item = &models.OrderItem{
				OrderID:   order.ID,
				ProductID: exception.ProductID,
				Quantity:  exception.AffectedQuantity,
				UnitPrice: exception.UnitPrice,
			}
			item.Recalculate()
			if err := orderRepo.CreateItem(item); err != nil {
				return err
			}
		} else {
			item.Quantity += exception.AffectedQuantity
			item.Recalculate()
			if err := orderRepo.UpdateItem(item); err != nil {
				return err
			}
		}

		// exceptions that shared the vanished line follow the surviving one
		if err := exceptionRepo.RepointItem(order.ID, exception.OrderItemID, item.ID); err != nil {
			return err
		}

		if exception.StockReturned {
			low, err = s.stock.DecrementInTx(tx, []StockLine{{ProductID: exception.ProductID, Quantity: exception.AffectedQuantity}})
			if err != nil {
				return err
			}
		}

		oldStatus := exception.ResolutionStatus
		now := time.Now()
		exception.OrderItemID = item.ID
		exception.ResolutionStatus = constants.ResolutionVoided
		exception.ResolutionNotes = strings.TrimSpace(notes)
		exception.ResolvedBy = actor.Ref()
		exception.ResolvedAt = &now
		if err := exceptionRepo.Update(exception); err != nil {
			return err
		}
		if err := exceptionRepo.CreateHistory(&models.DeliveryExceptionHistory{
			ExceptionID: exception.ID,
			Action:      constants.ExceptionActionVoided,
			OldStatus:   oldStatus,
			NewStatus:   constants.ResolutionVoided,
			ActorID:     actor.Ref(),
			Notes:       exception.ResolutionNotes,
		}); err != nil {
			return err
		}

		return s.syncOrderTotals(tx, order, oldItems, oldTotal, oldOutstanding, actor,
			fmt.Sprintf("exception %d voided: product %d x%d restored", exception.ID, exception.ProductID, exception.AffectedQuantity))
	})
	if err != nil {
		return nil, err
	}
	s.stock.NotifyLowStock(low)
	metrics.DeliveryExceptionTransitionsTotal.WithLabelValues(constants.ResolutionVoided).Inc()
	logger.Infow("delivery_exception_voided", "exception_id", exceptionID, "actor_id", actor.ID)
	return exception, nil
}

// voidTarget the line a voided exception goes back onto: its own item when still present,
// otherwise the order's line of the same product at the same price; nil means a new line
func (s *ExceptionService) voidTarget(orderRepo *repository.GormOrderRepository, orderID uint, exception *models.DeliveryException) (*models.OrderItem, error) {
	item, err := orderRepo.GetItem(orderID, exception.OrderItemID)
	if err != nil || item != nil {
		return item, err
	}
	item, err = orderRepo.FindItemByProduct(orderID, exception.ProductID)
	if err != nil || item == nil {
		return nil, err
	}
	if !item.UnitPrice.Same(exception.UnitPrice) {
		return nil, nil
	}
	return item, nil
}

// syncOrderTotals recomputes the order total from its items and propagates it to payment status,
// history and the customer balance
func (s *ExceptionService) syncOrderTotals(tx *gorm.DB, order *models.Order, oldItems []models.OrderItem, oldTotal, oldOutstanding models.Money, actor Actor, note string) error {
	orderRepo := s.orderRepo.WithTx(tx)
	items, err := orderRepo.ListItems(order.ID)
	if err != nil {
		return err
	}
	order.Items = items
	order.Total = sumSubtotals(items)
	if err := orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"total":          order.Total,
		"payment_status": PaymentStatusFor(order.AmountPaid, order.Total),
	}); err != nil {
		return err
	}
	if err := s.audit.RecordInTx(tx, order.ID, actor,
		historyChange{Field: constants.HistoryFieldException, NewValue: note},
		historyChange{Field: constants.HistoryFieldItems, OldValue: itemsSummary(oldItems), NewValue: itemsSummary(items)},
		historyChange{Field: constants.HistoryFieldTotal, OldValue: oldTotal.String(), NewValue: order.Total.String()},
	); err != nil {
		return err
	}
	return s.balance.OnOrderUpdated(tx, order.CustomerID, oldOutstanding, order.Outstanding())
}

// GetException loads one exception
func (s *ExceptionService) GetException(exceptionID uint) (*models.DeliveryException, error) {
	exception, err := s.exceptionRepo.GetByID(exceptionID)
	if err != nil {
		return nil, err
	}
	if exception == nil {
		return nil, ErrExceptionNotFound
	}
	return exception, nil
}

// ListByOrder exceptions registered on an order
func (s *ExceptionService) ListByOrder(orderID uint) ([]models.DeliveryException, error) {
	return s.exceptionRepo.ListByOrder(orderID)
}

// History audit trail of an exception
func (s *ExceptionService) History(exceptionID uint) ([]models.DeliveryExceptionHistory, error) {
	return s.exceptionRepo.ListHistory(exceptionID)
}

func cloneItems(items []models.OrderItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	copy(out, items)
	return out
}
