package models

import "time"

// Payment money received from a customer. Create/delete only.
type Payment struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	OrderID    *uint     `gorm:"index" json:"order_id,omitempty"`
	Amount     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	Method     string    `gorm:"type:varchar(20);not null" json:"method"`
	Notes      string    `gorm:"type:text" json:"notes"`
	CreatedBy  *uint     `gorm:"index" json:"created_by,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName table name
func (Payment) TableName() string {
	return "payments"
}
