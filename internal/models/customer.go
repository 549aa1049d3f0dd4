package models

import "time"

// Customer account holder. Positive balance means the customer owes money.
type Customer struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(200);not null" json:"name"`
	Address     string    `gorm:"type:varchar(300)" json:"address"`
	Phone       string    `gorm:"type:varchar(50)" json:"phone"`
	Balance     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	CreditLimit Money     `gorm:"type:decimal(20,2);not null;default:0" json:"credit_limit"`
	CreditDays  int       `gorm:"not null;default:0" json:"credit_days"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName table name
func (Customer) TableName() string {
	return "customers"
}
