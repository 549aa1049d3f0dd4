package service

import (
	"context"
	"strings"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"
)

// CustomerService customer accounts
type CustomerService struct {
	repo       repository.CustomerRepository
	balance    *BalanceService
	authorizer Authorizer
}

// CreateCustomerInput create customer input; balance always starts at zero
type CreateCustomerInput struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Address     string       `json:"address" validate:"max=300"`
	Phone       string       `json:"phone" validate:"max=50"`
	CreditLimit models.Money `json:"credit_limit"`
	CreditDays  int          `json:"credit_days" validate:"gte=0"`
}

// NewCustomerService creates the customer service
func NewCustomerService(repo repository.CustomerRepository, balance *BalanceService, authorizer Authorizer) *CustomerService {
	return &CustomerService{repo: repo, balance: balance, authorizer: authorizer}
}

// Create inserts a customer
func (s *CustomerService) Create(input CreateCustomerInput) (*models.Customer, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.CreditLimit.IsNegative() {
		return nil, invalidField("credit_limit", "credit limit cannot be negative")
	}
	customer := &models.Customer{
		Name:        strings.TrimSpace(input.Name),
		Address:     strings.TrimSpace(input.Address),
		Phone:       strings.TrimSpace(input.Phone),
		CreditLimit: input.CreditLimit,
		CreditDays:  input.CreditDays,
	}
	if err := s.repo.Create(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Get returns ErrCustomerNotFound when absent
func (s *CustomerService) Get(id uint) (*models.Customer, error) {
	customer, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// List pages through customers
func (s *CustomerService) List(search string, page, pageSize int) ([]models.Customer, int64, error) {
	return s.repo.List(repository.CustomerListFilter{Page: page, PageSize: pageSize, Search: search})
}

// RecomputeBalance compares the stored balance with a full recompute; repairing needs privilege
func (s *CustomerService) RecomputeBalance(ctx context.Context, id uint, repair bool, actor Actor) (*BalanceReport, error) {
	if repair {
		if err := requirePermission(s.authorizer, actor, authz.PermRepairBalance); err != nil {
			return nil, err
		}
	}
	return s.balance.Recompute(ctx, id, repair)
}
