//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB opens TEST_POSTGRES_DSN with fresh tables
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}
	tables := models.AllModels()
	_ = db.Migrator().DropTable(tables...)
	if err := db.AutoMigrate(tables...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Migrator().DropTable(tables...)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresConcurrentLockedDecrementNeverOversells(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewProductRepository(db)
	product := &models.Product{Name: "cola", Stock: 10, Price: models.MustMoney("1"), Active: true}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				txRepo := repo.WithTx(tx)
				locked, err := txRepo.ListByIDsForUpdate([]uint{product.ID})
				if err != nil {
					return err
				}
				if locked[0].Stock < 7 {
					return gorm.ErrInvalidData
				}
				_, err = txRepo.DecrementStock(product.ID, 7)
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("exactly one decrement should succeed, got %d", succeeded)
	}
	reloaded, err := repo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Stock != 3 {
		t.Fatalf("stock want 3 got %d", reloaded.Stock)
	}
}
