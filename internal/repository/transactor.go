package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs a unit of work inside one database transaction
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormTransactor GORM implementation
type GormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a transactor
func NewTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// Transaction commits when fn returns nil and rolls back otherwise
func (t *GormTransactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return t.db.WithContext(ctx).Transaction(fn)
}
