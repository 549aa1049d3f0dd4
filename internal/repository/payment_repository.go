package repository

import (
	"errors"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository customer payment data access
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByIDForUpdate(id uint) (*models.Payment, error)
	Delete(id uint) error
	ListByCustomer(customerID uint) ([]models.Payment, error)
	DetachOrder(orderID uint) error
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM implementation
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates the repository
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx binds a transaction
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByIDForUpdate locks a payment row; nil when absent
func (r *GormPaymentRepository) GetByIDForUpdate(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// Delete removes a payment
func (r *GormPaymentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Payment{}, id).Error
}

// ListByCustomer payments of a customer, newest first
func (r *GormPaymentRepository) ListByCustomer(customerID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.Where("customer_id = ?", customerID).Order("created_at DESC, id DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// DetachOrder clears the order reference of payments of a deleted order
func (r *GormPaymentRepository) DetachOrder(orderID uint) error {
	return r.db.Model(&models.Payment{}).Where("order_id = ?", orderID).Update("order_id", nil).Error
}
