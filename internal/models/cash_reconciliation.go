package models

import "time"

// CashReconciliation courier's end-of-route cash settlement. Difference = DeclaredAmount - ExpectedCash.
type CashReconciliation struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	RouteID        uint       `gorm:"uniqueIndex;not null" json:"route_id"`
	CourierID      uint       `gorm:"index;not null" json:"courier_id"`
	ExpectedCash   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"expected_cash"`
	ExpectedOther  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"expected_other"`
	DeclaredAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"declared_amount"`
	Difference     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"difference"`
	Justification  string     `gorm:"type:text" json:"justification"`
	Status         string     `gorm:"type:varchar(20);index;not null" json:"status"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID     *uint      `json:"reviewer_id,omitempty"`
	ReviewNotes    string     `gorm:"type:text" json:"review_notes"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	LineItems   []ReconciliationLineItem   `gorm:"foreignKey:ReconciliationID" json:"line_items,omitempty"`
	Adjustments []ReconciliationAdjustment `gorm:"foreignKey:ReconciliationID" json:"adjustments,omitempty"`
}

// TableName table name
func (CashReconciliation) TableName() string {
	return "cash_reconciliations"
}

// ReconciliationLineItem snapshot of what one delivered order paid
type ReconciliationLineItem struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	ReconciliationID uint      `gorm:"index;not null" json:"reconciliation_id"`
	OrderID          uint      `gorm:"index;not null" json:"order_id"`
	CustomerName     string    `gorm:"type:varchar(200)" json:"customer_name"`
	Amount           Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	PaymentMethod    string    `gorm:"type:varchar(20)" json:"payment_method"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName table name
func (ReconciliationLineItem) TableName() string {
	return "reconciliation_line_items"
}

// ReconciliationAdjustment explained deviation attached to a reconciliation
type ReconciliationAdjustment struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	ReconciliationID uint      `gorm:"index;not null" json:"reconciliation_id"`
	Type             string    `gorm:"type:varchar(30);not null" json:"type"`
	Amount           Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	Description      string    `gorm:"type:text" json:"description"`
	PhotoRef         string    `gorm:"type:varchar(500)" json:"photo_ref"`
	Approved         bool      `gorm:"not null" json:"approved"`
	CreatedBy        *uint     `json:"created_by,omitempty"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// TableName table name
func (ReconciliationAdjustment) TableName() string {
	return "reconciliation_adjustments"
}
