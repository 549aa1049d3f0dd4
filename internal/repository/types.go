package repository

import "time"

// ProductListFilter product list filter
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}

// CustomerListFilter customer list filter
type CustomerListFilter struct {
	Page     int
	PageSize int
	Search   string
}

// OrderListFilter order list filter
type OrderListFilter struct {
	Page          int
	PageSize      int
	CustomerID    uint
	CourierID     uint
	Status        string
	PaymentStatus string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// DeletedOrderListFilter archive list filter
type DeletedOrderListFilter struct {
	Page       int
	PageSize   int
	CustomerID uint
}

// ReconciliationListFilter reconciliation query filter
type ReconciliationListFilter struct {
	CourierID uint
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
}
