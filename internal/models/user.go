package models

import "time"

// User staff member acting as order creator, courier or reviewer
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	Role      string    `gorm:"type:varchar(20);index;not null" json:"role"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName table name
func (User) TableName() string {
	return "users"
}
