package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ArchivedItem line snapshot stored with a deleted order
type ArchivedItem struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	Subtotal    Money  `json:"subtotal"`
}

// ArchivedItems JSON column
type ArchivedItems []ArchivedItem

// Value implements driver.Valuer
func (a ArchivedItems) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *ArchivedItems) Scan(value interface{}) error {
	if value == nil {
		*a = ArchivedItems{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported archived items value")
	}
	return json.Unmarshal(raw, a)
}

// DeletedOrder immutable snapshot of an order taken before deletion
type DeletedOrder struct {
	ID              uint          `gorm:"primarykey" json:"id"`
	OrderID         uint          `gorm:"index;not null" json:"order_id"`
	CustomerID      uint          `gorm:"index" json:"customer_id"`
	CustomerName    string        `gorm:"type:varchar(200)" json:"customer_name"`
	CustomerAddress string        `gorm:"type:varchar(300)" json:"customer_address"`
	CreatedByID     *uint         `json:"created_by_id,omitempty"`
	CreatedByName   string        `gorm:"type:varchar(200)" json:"created_by_name"`
	CourierID       *uint         `json:"courier_id,omitempty"`
	CourierName     string        `gorm:"type:varchar(200)" json:"courier_name"`
	Status          string        `gorm:"type:varchar(20)" json:"status"`
	PaymentStatus   string        `gorm:"type:varchar(20)" json:"payment_status"`
	PaymentMethod   string        `gorm:"type:varchar(20)" json:"payment_method"`
	Total           Money         `gorm:"type:decimal(20,2);not null;default:0" json:"total"`
	AmountPaid      Money         `gorm:"type:decimal(20,2);not null;default:0" json:"amount_paid"`
	Items           ArchivedItems `gorm:"type:text" json:"items"`
	StockRestored   bool          `gorm:"not null" json:"stock_restored"`
	DeletedBy       *uint         `gorm:"index" json:"deleted_by,omitempty"`
	Reason          string        `gorm:"type:text" json:"reason"`
	OrderCreatedAt  time.Time     `json:"order_created_at"`
	ArchivedAt      time.Time     `gorm:"index" json:"archived_at"`
}

// TableName table name
func (DeletedOrder) TableName() string {
	return "deleted_orders"
}
