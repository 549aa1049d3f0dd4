package repository

import (
	"errors"
	"strings"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository customer data access
type CustomerRepository interface {
	Create(customer *models.Customer) error
	GetByID(id uint) (*models.Customer, error)
	GetByIDForUpdate(id uint) (*models.Customer, error)
	List(filter CustomerListFilter) ([]models.Customer, int64, error)
	ListIDs() ([]uint, error)
	UpdateBalance(id uint, balance models.Money) error
	ListOutstanding(customerID uint) ([]models.Order, error)
	WithTx(tx *gorm.DB) *GormCustomerRepository
}

// GormCustomerRepository GORM implementation
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates the repository
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx binds a transaction
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) *GormCustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// Create inserts a customer
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// GetByID returns nil when absent
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	return r.get(r.db, id)
}

// GetByIDForUpdate locks the customer row
func (r *GormCustomerRepository) GetByIDForUpdate(id uint) (*models.Customer, error) {
	return r.get(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCustomerRepository) get(query *gorm.DB, id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, nil
	}
	var customer models.Customer
	if err := query.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// List pages through customers
func (r *GormCustomerRepository) List(filter CustomerListFilter) ([]models.Customer, int64, error) {
	query := r.db.Model(&models.Customer{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, "name", "address", "phone")
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var customers []models.Customer
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("name ASC, id ASC").Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// ListIDs every customer id
func (r *GormCustomerRepository) ListIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Customer{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateBalance writes the balance column
func (r *GormCustomerRepository) UpdateBalance(id uint, balance models.Money) error {
	return r.db.Model(&models.Customer{}).Where("id = ?", id).Update("balance", balance).Error
}

// ListOutstanding the total and amount paid of every order of the customer
func (r *GormCustomerRepository) ListOutstanding(customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Model(&models.Order{}).
		Select("id", "total", "amount_paid").
		Where("customer_id = ?", customerID).
		Find(&orders).Error
	return orders, err
}
