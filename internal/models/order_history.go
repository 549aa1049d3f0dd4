package models

import "time"

// OrderHistory append-only record of a field change on an order
type OrderHistory struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	ActorID   *uint     `gorm:"index" json:"actor_id,omitempty"`
	Field     string    `gorm:"type:varchar(50);not null" json:"field"`
	OldValue  string    `gorm:"type:text" json:"old_value"`
	NewValue  string    `gorm:"type:text" json:"new_value"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName table name
func (OrderHistory) TableName() string {
	return "order_histories"
}
