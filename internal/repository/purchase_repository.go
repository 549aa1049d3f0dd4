package repository

import (
	"errors"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseRepository supplier purchase data access
type PurchaseRepository interface {
	Create(purchase *models.Purchase, items []models.PurchaseItem) error
	GetByID(id uint) (*models.Purchase, error)
	WithTx(tx *gorm.DB) *GormPurchaseRepository
}

// GormPurchaseRepository GORM implementation
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates the repository
func NewPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// WithTx binds a transaction
func (r *GormPurchaseRepository) WithTx(tx *gorm.DB) *GormPurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormPurchaseRepository{db: tx}
}

// Create inserts the purchase and its items
func (r *GormPurchaseRepository) Create(purchase *models.Purchase, items []models.PurchaseItem) error {
	if err := r.db.Omit(clause.Associations).Create(purchase).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].PurchaseID = purchase.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	purchase.Items = items
	return nil
}

// GetByID loads a purchase with items; nil when absent
func (r *GormPurchaseRepository) GetByID(id uint) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.Preload("Items").First(&purchase, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}
