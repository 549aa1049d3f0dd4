package models

import "time"

// DeliveryException partial or failed delivery of one order item
type DeliveryException struct {
	ID                 uint       `gorm:"primarykey" json:"id"`
	OrderID            uint       `gorm:"index;not null" json:"order_id"`
	OrderItemID        uint       `gorm:"index" json:"order_item_id"` // follows the item when a void recreates it
	ProductID          uint       `gorm:"index;not null" json:"product_id"`
	UnitPrice          Money      `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	OriginalQuantity   int        `gorm:"not null" json:"original_quantity"`
	AffectedQuantity   int        `gorm:"not null" json:"affected_quantity"`
	DeliveredQuantity  int        `gorm:"not null" json:"delivered_quantity"`
	Reason             string     `gorm:"type:varchar(30);index;not null" json:"reason"`
	Description        string     `gorm:"type:text" json:"description"`
	PhotoRef           string     `gorm:"type:varchar(500)" json:"photo_ref"`
	MonetaryImpact     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"monetary_impact"`
	ResolutionStatus   string     `gorm:"type:varchar(30);index;not null" json:"resolution_status"`
	StockReturned      bool       `gorm:"not null" json:"stock_returned"`
	ItemRemoved        bool       `gorm:"not null" json:"item_removed"`
	RescheduledOrderID *uint      `json:"rescheduled_order_id,omitempty"`
	ResolutionNotes    string     `gorm:"type:text" json:"resolution_notes"`
	CreatedBy          *uint      `json:"created_by,omitempty"`
	ResolvedBy         *uint      `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName table name
func (DeliveryException) TableName() string {
	return "delivery_exceptions"
}

// DeliveryExceptionHistory audit trail of one exception
type DeliveryExceptionHistory struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ExceptionID uint      `gorm:"index;not null" json:"exception_id"`
	Action      string    `gorm:"type:varchar(20);not null" json:"action"`
	OldStatus   string    `gorm:"type:varchar(30)" json:"old_status"`
	NewStatus   string    `gorm:"type:varchar(30)" json:"new_status"`
	ActorID     *uint     `json:"actor_id,omitempty"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName table name
func (DeliveryExceptionHistory) TableName() string {
	return "delivery_exception_histories"
}
