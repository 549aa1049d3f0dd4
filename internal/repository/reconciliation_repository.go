package repository

import (
	"errors"
	"strings"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReconciliationRepository cash reconciliation data access
type ReconciliationRepository interface {
	Create(reconciliation *models.CashReconciliation, lines []models.ReconciliationLineItem) error
	GetByID(id uint) (*models.CashReconciliation, error)
	GetByIDForUpdate(id uint) (*models.CashReconciliation, error)
	GetByRouteID(routeID uint) (*models.CashReconciliation, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	CreateAdjustment(adjustment *models.ReconciliationAdjustment) error
	List(filter ReconciliationListFilter) ([]models.CashReconciliation, error)
	WithTx(tx *gorm.DB) *GormReconciliationRepository
}

// GormReconciliationRepository GORM implementation
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository creates the repository
func NewReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// WithTx binds a transaction
func (r *GormReconciliationRepository) WithTx(tx *gorm.DB) *GormReconciliationRepository {
	if tx == nil {
		return r
	}
	return &GormReconciliationRepository{db: tx}
}

// Create inserts the reconciliation and its line items
func (r *GormReconciliationRepository) Create(reconciliation *models.CashReconciliation, lines []models.ReconciliationLineItem) error {
	if err := r.db.Omit(clause.Associations).Create(reconciliation).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].ReconciliationID = reconciliation.ID
	}
	if len(lines) > 0 {
		if err := r.db.Create(&lines).Error; err != nil {
			return err
		}
	}
	reconciliation.LineItems = lines
	return nil
}

// GetByID loads a reconciliation with line items and adjustments; nil when absent
func (r *GormReconciliationRepository) GetByID(id uint) (*models.CashReconciliation, error) {
	var reconciliation models.CashReconciliation
	query := r.db.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Adjustments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
	if err := query.First(&reconciliation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reconciliation, nil
}

// GetByIDForUpdate locks the reconciliation row
func (r *GormReconciliationRepository) GetByIDForUpdate(id uint) (*models.CashReconciliation, error) {
	var reconciliation models.CashReconciliation
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reconciliation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reconciliation, nil
}

// GetByRouteID the reconciliation of a route; nil when none exists yet
func (r *GormReconciliationRepository) GetByRouteID(routeID uint) (*models.CashReconciliation, error) {
	var reconciliation models.CashReconciliation
	if err := r.db.Where("route_id = ?", routeID).First(&reconciliation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reconciliation, nil
}

// UpdateFields updates the given columns
func (r *GormReconciliationRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.CashReconciliation{}).Where("id = ?", id).Updates(updates).Error
}

// CreateAdjustment inserts an adjustment
func (r *GormReconciliationRepository) CreateAdjustment(adjustment *models.ReconciliationAdjustment) error {
	return r.db.Create(adjustment).Error
}

// List reconciliations matching filter, without associations
func (r *GormReconciliationRepository) List(filter ReconciliationListFilter) ([]models.CashReconciliation, error) {
	query := r.db.Model(&models.CashReconciliation{})
	if filter.CourierID != 0 {
		query = query.Where("courier_id = ?", filter.CourierID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}
	var reconciliations []models.CashReconciliation
	if err := query.Order("id ASC").Find(&reconciliations).Error; err != nil {
		return nil, err
	}
	return reconciliations, nil
}
