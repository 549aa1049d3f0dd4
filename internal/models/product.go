package models

import "time"

// Product catalogue entry with its stock counter
type Product struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	SKU       string    `gorm:"type:varchar(64);index" json:"sku"`
	Stock     int       `gorm:"not null;default:0" json:"stock"` // never negative
	MinStock  int       `gorm:"not null;default:0" json:"min_stock"`
	Price     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"`
	Cost      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"cost"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName table name
func (Product) TableName() string {
	return "products"
}

// BelowMinimum reports whether stock reached the reorder threshold.
func (p Product) BelowMinimum() bool {
	return p.MinStock > 0 && p.Stock <= p.MinStock
}
