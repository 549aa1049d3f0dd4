package models

import "time"

// OrderItem order line; Subtotal = Quantity * UnitPrice
type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	Subtotal  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName table name
func (OrderItem) TableName() string {
	return "order_items"
}

// Recalculate refreshes Subtotal from quantity and unit price.
func (i *OrderItem) Recalculate() {
	i.Subtotal = i.UnitPrice.Times(i.Quantity)
}
