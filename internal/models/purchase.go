package models

import "time"

// Purchase goods received from a supplier
type Purchase struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Supplier  string    `gorm:"type:varchar(200);not null" json:"supplier"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Total     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total"`
	CreatedBy *uint     `gorm:"index" json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Items []PurchaseItem `gorm:"foreignKey:PurchaseID" json:"items,omitempty"`
}

// TableName table name
func (Purchase) TableName() string {
	return "purchases"
}

// PurchaseItem purchase line
type PurchaseItem struct {
	ID         uint  `gorm:"primarykey" json:"id"`
	PurchaseID uint  `gorm:"index;not null" json:"purchase_id"`
	ProductID  uint  `gorm:"index;not null" json:"product_id"`
	Quantity   int   `gorm:"not null" json:"quantity"`
	UnitCost   Money `gorm:"type:decimal(20,2);not null;default:0" json:"unit_cost"`
	Subtotal   Money `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`
}

// TableName table name
func (PurchaseItem) TableName() string {
	return "purchase_items"
}
