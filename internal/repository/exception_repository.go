package repository

import (
	"errors"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExceptionRepository delivery exception data access
type ExceptionRepository interface {
	Create(exception *models.DeliveryException) error
	GetByID(id uint) (*models.DeliveryException, error)
	GetByIDForUpdate(id uint) (*models.DeliveryException, error)
	Update(exception *models.DeliveryException) error
	ListByOrder(orderID uint) ([]models.DeliveryException, error)
	RepointItem(orderID, fromItemID, toItemID uint) error
	DeleteByOrder(orderID uint) error
	CreateHistory(entry *models.DeliveryExceptionHistory) error
	ListHistory(exceptionID uint) ([]models.DeliveryExceptionHistory, error)
	WithTx(tx *gorm.DB) *GormExceptionRepository
}

// GormExceptionRepository GORM implementation
type GormExceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository creates the repository
func NewExceptionRepository(db *gorm.DB) *GormExceptionRepository {
	return &GormExceptionRepository{db: db}
}

// WithTx binds a transaction
func (r *GormExceptionRepository) WithTx(tx *gorm.DB) *GormExceptionRepository {
	if tx == nil {
		return r
	}
	return &GormExceptionRepository{db: tx}
}

// Create inserts an exception
func (r *GormExceptionRepository) Create(exception *models.DeliveryException) error {
	return r.db.Create(exception).Error
}

// GetByID returns nil when absent
func (r *GormExceptionRepository) GetByID(id uint) (*models.DeliveryException, error) {
	return r.get(r.db, id)
}

// GetByIDForUpdate locks the exception row
func (r *GormExceptionRepository) GetByIDForUpdate(id uint) (*models.DeliveryException, error) {
	return r.get(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormExceptionRepository) get(query *gorm.DB, id uint) (*models.DeliveryException, error) {
	if id == 0 {
		return nil, nil
	}
	var exception models.DeliveryException
	if err := query.First(&exception, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &exception, nil
}

// Update saves every column of the exception
func (r *GormExceptionRepository) Update(exception *models.DeliveryException) error {
	return r.db.Save(exception).Error
}

// ListByOrder exceptions of an order, oldest first
func (r *GormExceptionRepository) ListByOrder(orderID uint) ([]models.DeliveryException, error) {
	var exceptions []models.DeliveryException
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&exceptions).Error; err != nil {
		return nil, err
	}
	return exceptions, nil
}

// RepointItem moves the exceptions of an order that reference fromItemID onto toItemID
func (r *GormExceptionRepository) RepointItem(orderID, fromItemID, toItemID uint) error {
	if fromItemID == toItemID {
		return nil
	}
	return r.db.Model(&models.DeliveryException{}).
		Where("order_id = ? AND order_item_id = ?", orderID, fromItemID).
		Update("order_item_id", toItemID).Error
}

// DeleteByOrder removes the exceptions of an order and their audit trail
func (r *GormExceptionRepository) DeleteByOrder(orderID uint) error {
	var ids []uint
	if err := r.db.Model(&models.DeliveryException{}).Where("order_id = ?", orderID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("exception_id IN ?", ids).Delete(&models.DeliveryExceptionHistory{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&models.DeliveryException{}).Error
}

// CreateHistory appends an audit entry
func (r *GormExceptionRepository) CreateHistory(entry *models.DeliveryExceptionHistory) error {
	return r.db.Create(entry).Error
}

// ListHistory audit trail of an exception, oldest first
func (r *GormExceptionRepository) ListHistory(exceptionID uint) ([]models.DeliveryExceptionHistory, error) {
	var entries []models.DeliveryExceptionHistory
	if err := r.db.Where("exception_id = ?", exceptionID).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
