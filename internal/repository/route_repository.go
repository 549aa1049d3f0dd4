package repository

import (
	"errors"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RouteRepository delivery route data access
type RouteRepository interface {
	Create(route *models.DeliveryRoute, stops []models.RouteStop) error
	GetByID(id uint) (*models.DeliveryRoute, error)
	GetByIDForUpdate(id uint) (*models.DeliveryRoute, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	GetStop(routeID, orderID uint) (*models.RouteStop, error)
	UpdateStop(stop *models.RouteStop) error
	ListStops(routeID uint) ([]models.RouteStop, error)
	DeleteStopsByOrder(orderID uint) error
	WithTx(tx *gorm.DB) *GormRouteRepository
}

// GormRouteRepository GORM implementation
type GormRouteRepository struct {
	db *gorm.DB
}

// NewRouteRepository creates the repository
func NewRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// WithTx binds a transaction
func (r *GormRouteRepository) WithTx(tx *gorm.DB) *GormRouteRepository {
	if tx == nil {
		return r
	}
	return &GormRouteRepository{db: tx}
}

// Create inserts the route and its stops
func (r *GormRouteRepository) Create(route *models.DeliveryRoute, stops []models.RouteStop) error {
	if err := r.db.Omit(clause.Associations).Create(route).Error; err != nil {
		return err
	}
	for i := range stops {
		stops[i].RouteID = route.ID
	}
	if len(stops) > 0 {
		if err := r.db.Create(&stops).Error; err != nil {
			return err
		}
	}
	route.Stops = stops
	return nil
}

// GetByID loads a route with stops in sequence order; nil when absent
func (r *GormRouteRepository) GetByID(id uint) (*models.DeliveryRoute, error) {
	return r.get(r.db, id)
}

// GetByIDForUpdate locks the route row
func (r *GormRouteRepository) GetByIDForUpdate(id uint) (*models.DeliveryRoute, error) {
	return r.get(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormRouteRepository) get(query *gorm.DB, id uint) (*models.DeliveryRoute, error) {
	if id == 0 {
		return nil, nil
	}
	var route models.DeliveryRoute
	if err := query.First(&route, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	stops, err := r.ListStops(route.ID)
	if err != nil {
		return nil, err
	}
	route.Stops = stops
	return &route, nil
}

// UpdateFields updates the given route columns
func (r *GormRouteRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.DeliveryRoute{}).Where("id = ?", id).Updates(updates).Error
}

// GetStop the stop of an order on a route; nil when absent
func (r *GormRouteRepository) GetStop(routeID, orderID uint) (*models.RouteStop, error) {
	var stop models.RouteStop
	if err := r.db.Where("route_id = ? AND order_id = ?", routeID, orderID).First(&stop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stop, nil
}

// UpdateStop saves delivery status of a stop
func (r *GormRouteRepository) UpdateStop(stop *models.RouteStop) error {
	return r.db.Model(&models.RouteStop{}).Where("id = ?", stop.ID).Updates(map[string]interface{}{
		"delivery_status": stop.DeliveryStatus,
		"delivered_at":    stop.DeliveredAt,
	}).Error
}

// ListStops stops of a route in sequence order
func (r *GormRouteRepository) ListStops(routeID uint) ([]models.RouteStop, error) {
	var stops []models.RouteStop
	if err := r.db.Where("route_id = ?", routeID).Order("sequence ASC, id ASC").Find(&stops).Error; err != nil {
		return nil, err
	}
	return stops, nil
}

// DeleteStopsByOrder removes every stop of a deleted order
func (r *GormRouteRepository) DeleteStopsByOrder(orderID uint) error {
	return r.db.Where("order_id = ?", orderID).Delete(&models.RouteStop{}).Error
}
