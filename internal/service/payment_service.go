package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/metrics"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"gorm.io/gorm"
)

// PaymentService customer payments; balance moves in the same transaction
type PaymentService struct {
	tx           repository.Transactor
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	orderRepo    repository.OrderRepository
	balance      *BalanceService
	authorizer   Authorizer
}

// CreatePaymentInput create payment input
type CreatePaymentInput struct {
	CustomerID uint         `json:"customer_id" validate:"required"`
	OrderID    *uint        `json:"order_id"`
	Amount     models.Money `json:"amount"`
	Method     string       `json:"method" validate:"required"`
	Notes      string       `json:"notes" validate:"max=2000"`
}

// NewPaymentService creates the payment service
func NewPaymentService(
	tx repository.Transactor,
	paymentRepo repository.PaymentRepository,
	customerRepo repository.CustomerRepository,
	orderRepo repository.OrderRepository,
	balance *BalanceService,
	authorizer Authorizer,
) *PaymentService {
	return &PaymentService{
		tx:           tx,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		balance:      balance,
		authorizer:   authorizer,
	}
}

// Create records a payment and lowers the customer balance by its amount
func (s *PaymentService) Create(ctx context.Context, input CreatePaymentInput, actor Actor) (*models.Payment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var problems []Problem
	if input.Amount.Decimal.Sign() <= 0 {
		problems = append(problems, Problem{Code: ProblemInvalidField, Field: "amount", Message: "amount must be greater than zero"})
	}
	if !constants.ValidPaymentMethod(input.Method) {
		problems = append(problems, Problem{Code: ProblemInvalidField, Field: "method", Message: fmt.Sprintf("unknown payment method %q", input.Method)})
	}
	if len(problems) > 0 {
		return nil, newDomainError(ErrInvalidInput, problems...)
	}

	payment := &models.Payment{
		CustomerID: input.CustomerID,
		OrderID:    input.OrderID,
		Amount:     input.Amount,
		Method:     input.Method,
		Notes:      strings.TrimSpace(input.Notes),
		CreatedBy:  actor.Ref(),
	}
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		customer, err := s.customerRepo.WithTx(tx).GetByID(input.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
		if input.OrderID != nil {
			order, err := s.orderRepo.WithTx(tx).GetByID(*input.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return ErrOrderNotFound
			}
			if order.CustomerID != customer.ID {
				return invalidField("order_id", fmt.Sprintf("order %d does not belong to customer %d", order.ID, customer.ID))
			}
		}
		if err := s.paymentRepo.WithTx(tx).Create(payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		return s.balance.OnPaymentCreated(tx, payment)
	})
	if err != nil {
		return nil, err
	}
	metrics.PaymentsRecordedTotal.WithLabelValues(payment.Method).Inc()
	logger.Infow("payment_created",
		"payment_id", payment.ID,
		"customer_id", payment.CustomerID,
		"amount", payment.Amount.String(),
		"method", payment.Method,
		"actor_id", actor.ID,
	)
	return payment, nil
}

// Delete removes a payment and gives its amount back to the balance
func (s *PaymentService) Delete(ctx context.Context, paymentID uint, actor Actor) error {
	if err := requirePermission(s.authorizer, actor, authz.PermDeletePayment); err != nil {
		return err
	}
	var deleted *models.Payment
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		payment, err := repo.GetByIDForUpdate(paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if err := repo.Delete(payment.ID); err != nil {
			return err
		}
		deleted = payment
		return s.balance.OnPaymentDeleted(tx, payment)
	})
	if err != nil {
		return err
	}
	logger.Infow("payment_deleted",
		"payment_id", deleted.ID,
		"customer_id", deleted.CustomerID,
		"amount", deleted.Amount.String(),
		"actor_id", actor.ID,
	)
	return nil
}

// ListByCustomer payments of a customer, newest first
func (s *PaymentService) ListByCustomer(customerID uint) ([]models.Payment, error) {
	return s.paymentRepo.ListByCustomer(customerID)
}
