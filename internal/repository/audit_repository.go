package repository

import (
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/gorm"
)

// AuditRepository order history and deleted order archive
type AuditRepository interface {
	CreateHistory(entries ...models.OrderHistory) error
	ListHistory(orderID uint) ([]models.OrderHistory, error)
	DeleteHistory(orderID uint) error
	CreateArchive(archive *models.DeletedOrder) error
	ListArchives(filter DeletedOrderListFilter) ([]models.DeletedOrder, int64, error)
	WithTx(tx *gorm.DB) *GormAuditRepository
}

// GormAuditRepository GORM implementation
type GormAuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates the repository
func NewAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// WithTx binds a transaction
func (r *GormAuditRepository) WithTx(tx *gorm.DB) *GormAuditRepository {
	if tx == nil {
		return r
	}
	return &GormAuditRepository{db: tx}
}

// CreateHistory appends history entries
func (r *GormAuditRepository) CreateHistory(entries ...models.OrderHistory) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.Create(&entries).Error
}

// ListHistory history of an order, oldest first
func (r *GormAuditRepository) ListHistory(orderID uint) ([]models.OrderHistory, error) {
	var entries []models.OrderHistory
	if err := r.db.Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteHistory removes the history of a deleted order
func (r *GormAuditRepository) DeleteHistory(orderID uint) error {
	return r.db.Where("order_id = ?", orderID).Delete(&models.OrderHistory{}).Error
}

// CreateArchive stores a deleted order snapshot
func (r *GormAuditRepository) CreateArchive(archive *models.DeletedOrder) error {
	return r.db.Create(archive).Error
}

// ListArchives pages through deleted orders, newest first
func (r *GormAuditRepository) ListArchives(filter DeletedOrderListFilter) ([]models.DeletedOrder, int64, error) {
	query := r.db.Model(&models.DeletedOrder{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var archives []models.DeletedOrder
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("archived_at DESC, id DESC").Find(&archives).Error; err != nil {
		return nil, 0, err
	}
	return archives, total, nil
}
