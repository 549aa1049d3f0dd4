package models

import "time"

// DeliveryRoute a courier's delivery run for one day
type DeliveryRoute struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	CourierID      uint       `gorm:"index;not null" json:"courier_id"`
	RouteDate      time.Time  `gorm:"index" json:"route_date"`
	Status         string     `gorm:"type:varchar(20);index;not null" json:"status"`
	TotalInvoiced  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_invoiced"`
	TotalCollected Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_collected"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Stops []RouteStop `gorm:"foreignKey:RouteID" json:"stops,omitempty"`
}

// TableName table name
func (DeliveryRoute) TableName() string {
	return "delivery_routes"
}

// RouteStop one order visited by a route
type RouteStop struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	RouteID        uint       `gorm:"index;not null" json:"route_id"`
	OrderID        uint       `gorm:"index;not null" json:"order_id"`
	Sequence       int        `gorm:"not null" json:"sequence"`
	DeliveryStatus string     `gorm:"type:varchar(20);not null" json:"delivery_status"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName table name
func (RouteStop) TableName() string {
	return "route_stops"
}
