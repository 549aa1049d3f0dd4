package service

import (
	"context"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/metrics"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"gorm.io/gorm"
)

// BalanceService keeps customer balance equal to
// sum(order total - amount paid) - sum(payments).
// Every mutation runs inside the caller's transaction.
type BalanceService struct {
	tx           repository.Transactor
	customerRepo repository.CustomerRepository
	paymentRepo  repository.PaymentRepository
}

// BalanceReport stored balance against the recomputed one
type BalanceReport struct {
	CustomerID uint         `json:"customer_id"`
	Stored     models.Money `json:"stored"`
	Computed   models.Money `json:"computed"`
	Drift      models.Money `json:"drift"`
	Repaired   bool         `json:"repaired"`
}

// InSync reports whether stored and computed balances agree
func (r BalanceReport) InSync() bool {
	return r.Drift.IsZero()
}

// NewBalanceService creates the balance ledger
func NewBalanceService(tx repository.Transactor, customerRepo repository.CustomerRepository, paymentRepo repository.PaymentRepository) *BalanceService {
	return &BalanceService{
		tx:           tx,
		customerRepo: customerRepo,
		paymentRepo:  paymentRepo,
	}
}

// PaymentStatusFor derives the payment status of an order
func PaymentStatusFor(amountPaid, total models.Money) string {
	switch {
	case amountPaid.Decimal.Sign() <= 0 && total.Decimal.Sign() > 0:
		return constants.PaymentStatusPending
	case amountPaid.Decimal.GreaterThanOrEqual(total.Decimal):
		return constants.PaymentStatusPaid
	default:
		return constants.PaymentStatusPartial
	}
}

// OnOrderCreated the new order's outstanding amount is owed
func (s *BalanceService) OnOrderCreated(tx *gorm.DB, order *models.Order) error {
	return s.apply(tx, order.CustomerID, order.Outstanding())
}

// OnOrderUpdated applies the change of outstanding amount
func (s *BalanceService) OnOrderUpdated(tx *gorm.DB, customerID uint, oldOutstanding, newOutstanding models.Money) error {
	return s.apply(tx, customerID, newOutstanding.Minus(oldOutstanding))
}

// OnOrderDeleted the order's outstanding amount is no longer owed
func (s *BalanceService) OnOrderDeleted(tx *gorm.DB, order *models.Order) error {
	return s.apply(tx, order.CustomerID, order.Outstanding().Neg())
}

// OnPaymentCreated a payment reduces what the customer owes
func (s *BalanceService) OnPaymentCreated(tx *gorm.DB, payment *models.Payment) error {
	return s.apply(tx, payment.CustomerID, payment.Amount.Neg())
}

// OnPaymentDeleted reverses a payment
func (s *BalanceService) OnPaymentDeleted(tx *gorm.DB, payment *models.Payment) error {
	return s.apply(tx, payment.CustomerID, payment.Amount)
}

func (s *BalanceService) apply(tx *gorm.DB, customerID uint, delta models.Money) error {
	if delta.IsZero() {
		return nil
	}
	repo := s.customerRepo.WithTx(tx)
	customer, err := repo.GetByIDForUpdate(customerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return ErrCustomerNotFound
	}
	return repo.UpdateBalance(customer.ID, customer.Balance.Plus(delta))
}

// Recompute rebuilds a balance from orders and payments; with repair it overwrites the stored value
func (s *BalanceService) Recompute(ctx context.Context, customerID uint, repair bool) (*BalanceReport, error) {
	var report *BalanceReport
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		report, err = s.recomputeInTx(tx, customerID, repair)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !report.InSync() {
		metrics.BalanceDriftTotal.WithLabelValues(boolLabel(report.Repaired)).Inc()
		logger.Warnw("balance_drift_detected",
			"customer_id", customerID,
			"stored", report.Stored.String(),
			"computed", report.Computed.String(),
			"repaired", report.Repaired,
		)
	}
	return report, nil
}

func (s *BalanceService) recomputeInTx(tx *gorm.DB, customerID uint, repair bool) (*BalanceReport, error) {
	repo := s.customerRepo.WithTx(tx)
	customer, err := repo.GetByIDForUpdate(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	orders, err := repo.ListOutstanding(customerID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.WithTx(tx).ListByCustomer(customerID)
	if err != nil {
		return nil, err
	}
	computed := models.Money{}
	for _, order := range orders {
		computed = computed.Plus(order.Outstanding())
	}
	for _, payment := range payments {
		computed = computed.Minus(payment.Amount)
	}
	report := &BalanceReport{
		CustomerID: customerID,
		Stored:     customer.Balance,
		Computed:   computed,
		Drift:      customer.Balance.Minus(computed),
	}
	if repair && !report.InSync() {
		if err := repo.UpdateBalance(customerID, computed); err != nil {
			return nil, err
		}
		report.Repaired = true
	}
	return report, nil
}

// AuditAll recomputes every customer and returns the ones that drifted
func (s *BalanceService) AuditAll(ctx context.Context, repair bool) ([]BalanceReport, error) {
	ids, err := s.customerRepo.ListIDs()
	if err != nil {
		return nil, err
	}
	drifted := make([]BalanceReport, 0)
	for _, id := range ids {
		report, err := s.Recompute(ctx, id, repair)
		if err != nil {
			return nil, err
		}
		if !report.InSync() {
			drifted = append(drifted, *report)
		}
	}
	logger.Infow("balance_audit_finished", "customers", len(ids), "drifted", len(drifted), "repair", repair)
	return drifted, nil
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
