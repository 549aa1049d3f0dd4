package repository

import (
	"errors"
	"strings"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository order and order item data access
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	ListByIDs(ids []uint) ([]models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	ListItems(orderID uint) ([]models.OrderItem, error)
	GetItem(orderID, itemID uint) (*models.OrderItem, error)
	FindItemByProduct(orderID, productID uint) (*models.OrderItem, error)
	CreateItem(item *models.OrderItem) error
	UpdateItem(item *models.OrderItem) error
	DeleteItem(itemID uint) error
	DeleteItems(orderID uint) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM implementation
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates the repository
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx binds a transaction
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// Create inserts the order and its items
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Omit(clause.Associations).Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID loads the order with items and customer; nil when absent
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.withItems(r.db).Preload("Customer").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate locks the order row and loads its items
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	items, err := r.ListItems(order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// ListByIDs loads orders by id
func (r *GormOrderRepository) ListByIDs(ids []uint) ([]models.Order, error) {
	if len(ids) == 0 {
		return []models.Order{}, nil
	}
	var orders []models.Order
	if err := r.db.Preload("Customer").Where("id IN ?", ids).Order("id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// List pages through orders
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.CourierID != 0 {
		query = query.Where("courier_id = ?", filter.CourierID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := strings.TrimSpace(filter.PaymentStatus); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	query = applyPagination(r.withItems(query).Preload("Customer"), filter.Page, filter.PageSize)
	if err := query.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateFields updates the given columns of an order
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// ListItems items of an order by id
func (r *GormOrderRepository) ListItems(orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem one item of an order; nil when absent
func (r *GormOrderRepository) GetItem(orderID, itemID uint) (*models.OrderItem, error) {
	if itemID == 0 {
		return nil, nil
	}
	return r.findItem(r.db.Where("id = ? AND order_id = ?", itemID, orderID))
}

// FindItemByProduct the line of productID on an order; nil when absent
func (r *GormOrderRepository) FindItemByProduct(orderID, productID uint) (*models.OrderItem, error) {
	return r.findItem(r.db.Where("order_id = ? AND product_id = ?", orderID, productID).Order("id ASC"))
}

// findItem uses Find so a missing line is not logged as a gorm error
func (r *GormOrderRepository) findItem(query *gorm.DB) (*models.OrderItem, error) {
	var item models.OrderItem
	result := query.Limit(1).Find(&item)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &item, nil
}

// CreateItem inserts an item
func (r *GormOrderRepository) CreateItem(item *models.OrderItem) error {
	return r.db.Omit(clause.Associations).Create(item).Error
}

// UpdateItem saves quantity, price and subtotal of an item
func (r *GormOrderRepository) UpdateItem(item *models.OrderItem) error {
	return r.db.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"quantity":   item.Quantity,
		"unit_price": item.UnitPrice,
		"subtotal":   item.Subtotal,
	}).Error
}

// DeleteItem removes an item
func (r *GormOrderRepository) DeleteItem(itemID uint) error {
	return r.db.Delete(&models.OrderItem{}, itemID).Error
}

// DeleteItems removes every item of an order
func (r *GormOrderRepository) DeleteItems(orderID uint) error {
	return r.db.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error
}

// Delete removes the order row
func (r *GormOrderRepository) Delete(id uint) error {
	return r.db.Delete(&models.Order{}, id).Error
}
