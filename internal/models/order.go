package models

import "time"

// Order customer order
type Order struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	CustomerID       uint       `gorm:"index;not null" json:"customer_id"`
	CreatedBy        *uint      `gorm:"index" json:"created_by,omitempty"`
	CourierID        *uint      `gorm:"index" json:"courier_id,omitempty"`
	Status           string     `gorm:"type:varchar(20);index;not null" json:"status"`
	PaymentStatus    string     `gorm:"type:varchar(20);index;not null" json:"payment_status"`
	Total            Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total"`
	AmountPaid       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount_paid"`
	PaymentMethod    string     `gorm:"type:varchar(20);not null" json:"payment_method"`
	StockDeducted    bool       `gorm:"not null" json:"stock_deducted"`
	DeliverySequence *int       `json:"delivery_sequence,omitempty"`
	Notes            string     `gorm:"type:text" json:"notes"`
	DeliveredAt      *time.Time `gorm:"index" json:"delivered_at"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Customer *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName table name
func (Order) TableName() string {
	return "orders"
}

// Outstanding is the part of the total not yet paid, the order's contribution to the customer balance.
func (o Order) Outstanding() Money {
	return o.Total.Minus(o.AmountPaid)
}
