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

// OrderService order lifecycle: create, edit items, status, courier, payment, delete
type OrderService struct {
	tx            repository.Transactor
	orderRepo     repository.OrderRepository
	productRepo   repository.ProductRepository
	customerRepo  repository.CustomerRepository
	userRepo      repository.UserRepository
	auditRepo     repository.AuditRepository
	paymentRepo   repository.PaymentRepository
	exceptionRepo repository.ExceptionRepository
	routeRepo     repository.RouteRepository
	stock         *StockService
	balance       *BalanceService
	audit         *AuditService
	policy        StatusPolicy
	authorizer    Authorizer
}

// CreateOrderItem requested order line; UnitPrice nil means the catalogue price
type CreateOrderItem struct {
	ProductID uint          `json:"product_id" validate:"required"`
	Quantity  int           `json:"quantity"`
	UnitPrice *models.Money `json:"unit_price"`
}

// CreateOrderInput create order input
type CreateOrderInput struct {
	CustomerID    uint              `json:"customer_id" validate:"required"`
	Items         []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
	ExpectedTotal models.Money      `json:"expected_total"`
	Notes         string            `json:"notes" validate:"max=2000"`
	PaymentMethod string            `json:"payment_method" validate:"omitempty,oneof=cash transfer card check account"`
	PaymentStatus string            `json:"payment_status" validate:"omitempty,oneof=pending partial paid"`
	AmountPaid    models.Money      `json:"amount_paid"`
}

// EditOrderItemsInput replacement item set of an order
type EditOrderItemsInput struct {
	Items []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

// UpdatePaymentInput payment state of an order
type UpdatePaymentInput struct {
	AmountPaid    models.Money `json:"amount_paid"`
	PaymentMethod string       `json:"payment_method" validate:"omitempty,oneof=cash transfer card check account"`
}

// NewOrderService creates the order service
func NewOrderService(
	tx repository.Transactor,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	paymentRepo repository.PaymentRepository,
	exceptionRepo repository.ExceptionRepository,
	routeRepo repository.RouteRepository,
	stock *StockService,
	balance *BalanceService,
	audit *AuditService,
	policy StatusPolicy,
	authorizer Authorizer,
) *OrderService {
	if policy == nil {
		policy = NewStatusPolicy(constants.StatusPolicyOpen)
	}
	return &OrderService{
		tx:            tx,
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		customerRepo:  customerRepo,
		userRepo:      userRepo,
		auditRepo:     auditRepo,
		paymentRepo:   paymentRepo,
		exceptionRepo: exceptionRepo,
		routeRepo:     routeRepo,
		stock:         stock,
		balance:       balance,
		audit:         audit,
		policy:        policy,
		authorizer:    authorizer,
	}
}

// StatusPolicy the active transition policy
func (s *OrderService) StatusPolicy() StatusPolicy {
	return s.policy
}

// CreateOrder validates stock for the whole batch, decrements it and inserts the order
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput, actor Actor) (*models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if problems := priceProblems(input.Items); len(problems) > 0 {
		return nil, newDomainError(ErrInvalidInput, problems...)
	}
	if input.AmountPaid.IsNegative() {
		return nil, invalidField("amount_paid", "amount paid cannot be negative")
	}
	method := input.PaymentMethod
	if method == "" {
		method = constants.PaymentMethodCash
	}

	var created *models.Order
	var low []models.Product
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		customer, err := s.customerRepo.WithTx(tx).GetByID(input.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}

		low, err = s.stock.DecrementInTx(tx, orderStockLines(input.Items))
		if err != nil {
			return err
		}
		prices, err := s.catalogPrices(tx, input.Items)
		if err != nil {
			return err
		}

		items := buildOrderItems(input.Items, prices)
		total := sumSubtotals(items)
		if !input.ExpectedTotal.IsZero() && !input.ExpectedTotal.Same(total) {
			return newDomainError(ErrTotalMismatch, Problem{
				Code:    ProblemTotalMismatch,
				Field:   "expected_total",
				Message: fmt.Sprintf("expected total %s differs from computed total %s", input.ExpectedTotal, total),
			})
		}
		amountPaid := input.AmountPaid
		if input.PaymentStatus == constants.PaymentStatusPaid && amountPaid.IsZero() {
			amountPaid = total
		}

		order := &models.Order{
			CustomerID:    input.CustomerID,
			CreatedBy:     actor.Ref(),
			Status:        constants.OrderStatusPending,
			PaymentStatus: PaymentStatusFor(amountPaid, total),
			Total:         total,
			AmountPaid:    amountPaid,
			PaymentMethod: method,
			StockDeducted: true,
			Notes:         strings.TrimSpace(input.Notes),
		}
		if err := s.orderRepo.WithTx(tx).Create(order, items); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.audit.RecordInTx(tx, order.ID, actor, historyChange{
			Field:    constants.HistoryFieldCreation,
			NewValue: fmt.Sprintf("total=%s items=%s", total, itemsSummary(items)),
		}); err != nil {
			return err
		}
		if err := s.balance.OnOrderCreated(tx, order); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.stock.NotifyLowStock(low)
	metrics.OrdersCreatedTotal.Inc()
	logger.Infow("order_created",
		"order_id", created.ID,
		"customer_id", created.CustomerID,
		"total", created.Total.String(),
		"actor_id", actor.ID,
	)
	return s.orderRepo.GetByID(created.ID)
}

// EditOrderItems replaces the item set of an undelivered order, moving only the stock difference
func (s *OrderService) EditOrderItems(ctx context.Context, orderID uint, input EditOrderItemsInput, actor Actor) (*models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if problems := priceProblems(input.Items); len(problems) > 0 {
		return nil, newDomainError(ErrInvalidInput, problems...)
	}
	// quantities are checked up front so no stock is touched for malformed input
	wanted, problems := mergeStockLines(orderStockLines(input.Items))
	if len(problems) > 0 {
		return nil, rejectStock(problems)
	}

	var low []models.Product
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == constants.OrderStatusDelivered {
			return newDomainError(ErrOrderDelivered, Problem{
				Code:    "order_delivered",
				Message: fmt.Sprintf("order %d is delivered and can no longer be edited", order.ID),
			})
		}

		current := make(map[uint]int)
		for _, item := range order.Items {
			current[item.ProductID] += item.Quantity
		}
		var increase, decrease []StockLine
		for _, line := range wanted {
			delta := line.Quantity - current[line.ProductID]
			if delta > 0 {
				increase = append(increase, StockLine{ProductID: line.ProductID, Quantity: delta})
			} else if delta < 0 {
				decrease = append(decrease, StockLine{ProductID: line.ProductID, Quantity: -delta})
			}
		}
		wantedQty := make(map[uint]int, len(wanted))
		for _, line := range wanted {
			wantedQty[line.ProductID] = line.Quantity
		}
		for productID, qty := range current {
			if _, ok := wantedQty[productID]; !ok {
				decrease = append(decrease, StockLine{ProductID: productID, Quantity: qty})
			}
		}

		if order.StockDeducted {
			low, err = s.stock.DecrementInTx(tx, increase)
			if err != nil {
				return err
			}
			if err := s.stock.RestoreInTx(tx, decrease); err != nil {
				return err
			}
		}

		prices, err := s.catalogPrices(tx, input.Items)
		if err != nil {
			return err
		}
		oldItems := order.Items
		newItems, err := s.rewriteItems(orderRepo, order, input.Items, prices)
		if err != nil {
			return err
		}

		oldTotal := order.Total
		oldOutstanding := order.Outstanding()
		order.Total = sumSubtotals(newItems)
		if err := orderRepo.UpdateFields(order.ID, map[string]interface{}{
			"total":          order.Total,
			"payment_status": PaymentStatusFor(order.AmountPaid, order.Total),
		}); err != nil {
			return err
		}
		if err := s.audit.RecordInTx(tx, order.ID, actor,
			historyChange{Field: constants.HistoryFieldItems, OldValue: itemsSummary(oldItems), NewValue: itemsSummary(newItems)},
			historyChange{Field: constants.HistoryFieldTotal, OldValue: oldTotal.String(), NewValue: order.Total.String()},
		); err != nil {
			return err
		}
		return s.balance.OnOrderUpdated(tx, order.CustomerID, oldOutstanding, order.Outstanding())
	})
	if err != nil {
		return nil, err
	}
	s.stock.NotifyLowStock(low)
	logger.Infow("order_items_edited", "order_id", orderID, "actor_id", actor.ID)
	return s.orderRepo.GetByID(orderID)
}

// rewriteItems updates existing lines in place so exception references keep pointing at them
func (s *OrderService) rewriteItems(orderRepo *repository.GormOrderRepository, order *models.Order, requested []CreateOrderItem, prices map[uint]models.Money) ([]models.OrderItem, error) {
	existing := make(map[uint]models.OrderItem)
	for _, item := range order.Items {
		if _, ok := existing[item.ProductID]; ok {
			// duplicate line of the same product, folded into the first one
			if err := orderRepo.DeleteItem(item.ID); err != nil {
				return nil, err
			}
			continue
		}
		existing[item.ProductID] = item
	}

	merged := mergeOrderItems(requested)
	result := make([]models.OrderItem, 0, len(merged))
	seen := make(map[uint]bool, len(merged))
	for _, req := range merged {
		seen[req.ProductID] = true
		item, ok := existing[req.ProductID]
		if !ok {
			item = models.OrderItem{OrderID: order.ID, ProductID: req.ProductID, UnitPrice: prices[req.ProductID]}
		}
		if req.UnitPrice != nil {
			item.UnitPrice = *req.UnitPrice
		}
		item.Quantity = req.Quantity
		item.Recalculate()
		if ok {
			if err := orderRepo.UpdateItem(&item); err != nil {
				return nil, err
			}
		} else if err := orderRepo.CreateItem(&item); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	for productID, item := range existing {
		if !seen[productID] {
			if err := orderRepo.DeleteItem(item.ID); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// DeleteOrderInput delete order input
type DeleteOrderInput struct {
	RestoreStock bool   `json:"restore_stock"`
	Reason       string `json:"reason" validate:"max=1000"`
}

// DeleteOrder archives the order and removes it with every dependent row in one transaction
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint, input DeleteOrderInput, actor Actor) (*models.DeletedOrder, error) {
	if err := requirePermission(s.authorizer, actor, authz.PermDeleteOrder); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var archive *models.DeletedOrder
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		restore := input.RestoreStock && order.StockDeducted
		archive, err = s.audit.ArchiveInTx(tx, order, restore, actor, input.Reason)
		if err != nil {
			return err
		}
		if restore {
			lines := make([]StockLine, 0, len(order.Items))
			for _, item := range order.Items {
				lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
			}
			if err := s.stock.RestoreInTx(tx, lines); err != nil {
				return err
			}
		}
		if err := s.exceptionRepo.WithTx(tx).DeleteByOrder(order.ID); err != nil {
			return err
		}
		if err := s.routeRepo.WithTx(tx).DeleteStopsByOrder(order.ID); err != nil {
			return err
		}
		if err := orderRepo.DeleteItems(order.ID); err != nil {
			return err
		}
		if err := s.auditRepo.WithTx(tx).DeleteHistory(order.ID); err != nil {
			return err
		}
		if err := s.paymentRepo.WithTx(tx).DetachOrder(order.ID); err != nil {
			return err
		}
		if err := orderRepo.Delete(order.ID); err != nil {
			return err
		}
		return s.balance.OnOrderDeleted(tx, order)
	})
	if err != nil {
		return nil, err
	}
	metrics.OrdersDeletedTotal.WithLabelValues(boolLabel(archive.StockRestored)).Inc()
	logger.Infow("order_deleted",
		"order_id", orderID,
		"stock_restored", archive.StockRestored,
		"actor_id", actor.ID,
	)
	return archive, nil
}

// ChangeStatus moves an order to newStatus when the policy allows it
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uint, newStatus string, actor Actor) (*models.Order, error) {
	newStatus = strings.TrimSpace(newStatus)
	if !constants.ValidOrderStatus(newStatus) {
		return nil, invalidField("status", fmt.Sprintf("unknown order status %q", newStatus))
	}
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		return s.changeStatusInTx(tx, order, newStatus, actor)
	})
	if err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(orderID)
}

// changeStatusInTx applies a status change to a locked order; same status is a no-op
func (s *OrderService) changeStatusInTx(tx *gorm.DB, order *models.Order, newStatus string, actor Actor) error {
	if order.Status == newStatus {
		return nil
	}
	if !s.policy.Allow(order.Status, newStatus) {
		return newDomainError(ErrStatusTransition, Problem{
			Code:    "status_transition",
			Field:   "status",
			Message: fmt.Sprintf("%s policy does not allow %s -> %s", s.policy.Name(), order.Status, newStatus),
		})
	}
	updates := map[string]interface{}{"status": newStatus}
	if newStatus == constants.OrderStatusDelivered {
		now := time.Now()
		updates["delivered_at"] = &now
		order.DeliveredAt = &now
	} else {
		updates["delivered_at"] = nil
		order.DeliveredAt = nil
	}
	if err := s.orderRepo.WithTx(tx).UpdateFields(order.ID, updates); err != nil {
		return err
	}
	oldStatus := order.Status
	order.Status = newStatus
	metrics.OrderStatusChangesTotal.WithLabelValues(newStatus).Inc()
	return s.audit.RecordInTx(tx, order.ID, actor, historyChange{
		Field:    constants.HistoryFieldStatus,
		OldValue: oldStatus,
		NewValue: newStatus,
	})
}

// AssignCourier sets or clears (courierID 0) the courier, optionally advancing to assigned
func (s *OrderService) AssignCourier(ctx context.Context, orderID, courierID uint, advanceStatus bool, actor Actor) (*models.Order, error) {
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if err := s.assignCourierInTx(tx, order, courierID, actor); err != nil {
			return err
		}
		if advanceStatus && courierID != 0 {
			return s.changeStatusInTx(tx, order, constants.OrderStatusAssigned, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(orderID)
}

func (s *OrderService) assignCourierInTx(tx *gorm.DB, order *models.Order, courierID uint, actor Actor) error {
	var next *uint
	if courierID != 0 {
		courier, err := activeCourier(s.userRepo.WithTx(tx), courierID)
		if err != nil {
			return err
		}
		next = &courier.ID
	}
	old := optionalID(order.CourierID)
	if err := s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{"courier_id": next}); err != nil {
		return err
	}
	order.CourierID = next
	return s.audit.RecordInTx(tx, order.ID, actor, historyChange{
		Field:    constants.HistoryFieldCourier,
		OldValue: old,
		NewValue: optionalID(next),
	})
}

// activeCourier loads courierID and fails with ErrCourierInvalid unless it is an active courier
func activeCourier(userRepo repository.UserRepository, courierID uint) (*models.User, error) {
	courier, err := userRepo.GetByID(courierID)
	if err != nil {
		return nil, err
	}
	if courier == nil || courier.Role != constants.RoleCourier || !courier.Active {
		return nil, newDomainError(ErrCourierInvalid, Problem{
			Code:    "courier_invalid",
			Field:   "courier_id",
			Message: fmt.Sprintf("user %d is not an active courier", courierID),
		})
	}
	return courier, nil
}

// UpdatePayment records what the customer paid on the order itself
func (s *OrderService) UpdatePayment(ctx context.Context, orderID uint, input UpdatePaymentInput, actor Actor) (*models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.AmountPaid.IsNegative() {
		return nil, invalidField("amount_paid", "amount paid cannot be negative")
	}
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		oldOutstanding := order.Outstanding()
		oldPaid := order.AmountPaid
		oldMethod := order.PaymentMethod
		method := order.PaymentMethod
		if input.PaymentMethod != "" {
			method = input.PaymentMethod
		}
		order.AmountPaid = input.AmountPaid
		order.PaymentMethod = method
		if err := s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
			"amount_paid":    order.AmountPaid,
			"payment_method": method,
			"payment_status": PaymentStatusFor(order.AmountPaid, order.Total),
		}); err != nil {
			return err
		}
		if err := s.audit.RecordInTx(tx, order.ID, actor,
			historyChange{Field: constants.HistoryFieldAmountPaid, OldValue: oldPaid.String(), NewValue: order.AmountPaid.String()},
			historyChange{Field: constants.HistoryFieldPaymentMethod, OldValue: oldMethod, NewValue: method},
		); err != nil {
			return err
		}
		return s.balance.OnOrderUpdated(tx, order.CustomerID, oldOutstanding, order.Outstanding())
	})
	if err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(orderID)
}

// GetOrder loads an order with items and customer
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders pages through orders
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// ListHistory change log of an order
func (s *OrderService) ListHistory(orderID uint) ([]models.OrderHistory, error) {
	return s.audit.History(orderID)
}

// ListDeletedOrders archived orders
func (s *OrderService) ListDeletedOrders(filter repository.DeletedOrderListFilter) ([]models.DeletedOrder, int64, error) {
	return s.audit.ListDeleted(filter)
}

func (s *OrderService) catalogPrices(tx *gorm.DB, items []CreateOrderItem) (map[uint]models.Money, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.WithTx(tx).ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[uint]models.Money, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}
	return prices, nil
}

func orderStockLines(items []CreateOrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// mergeOrderItems one entry per product; the last explicit unit price wins
func mergeOrderItems(items []CreateOrderItem) []CreateOrderItem {
	index := make(map[uint]int, len(items))
	merged := make([]CreateOrderItem, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			if item.UnitPrice != nil {
				merged[pos].UnitPrice = item.UnitPrice
			}
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

func buildOrderItems(requested []CreateOrderItem, prices map[uint]models.Money) []models.OrderItem {
	merged := mergeOrderItems(requested)
	items := make([]models.OrderItem, 0, len(merged))
	for _, req := range merged {
		item := models.OrderItem{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			UnitPrice: prices[req.ProductID],
		}
		if req.UnitPrice != nil {
			item.UnitPrice = *req.UnitPrice
		}
		item.Recalculate()
		items = append(items, item)
	}
	return items
}

func sumSubtotals(items []models.OrderItem) models.Money {
	total := models.Money{}
	for _, item := range items {
		total = total.Plus(item.Subtotal)
	}
	return total
}

func priceProblems(items []CreateOrderItem) []Problem {
	var problems []Problem
	for i, item := range items {
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			problems = append(problems, Problem{
				Code:      ProblemInvalidField,
				Field:     fmt.Sprintf("items[%d].unit_price", i),
				ProductID: item.ProductID,
				Message:   fmt.Sprintf("product %d: unit price cannot be negative", item.ProductID),
			})
		}
	}
	return problems
}
