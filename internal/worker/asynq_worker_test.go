package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/config"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/provider"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/queue"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	queueClient, err := queue.NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}
	container := provider.NewContainerWith(&config.Config{}, db, queueClient, nil)
	return NewConsumer(container), db
}

func mustTask(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(taskType, body)
}

func TestReportLowStockKeepsOnlyProductsStillBelowMinimum(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	low := &models.Product{Name: "Fernet 750ml", Stock: 1, MinStock: 5, Price: models.MustMoney("9000"), Active: true}
	restocked := &models.Product{Name: "Agua 2L", Stock: 40, MinStock: 5, Price: models.MustMoney("900"), Active: true}
	for _, p := range []*models.Product{low, restocked} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed product failed: %v", err)
		}
	}

	got, err := consumer.reportLowStock([]uint{low.ID, restocked.ID})
	if err != nil {
		t.Fatalf("report low stock failed: %v", err)
	}
	if len(got) != 1 || got[0] != low.ID {
		t.Fatalf("want only %d, got %v", low.ID, got)
	}

	task := mustTask(t, queue.TaskStockLowAlert, queue.StockLowAlertPayload{ProductIDs: []uint{low.ID}})
	if err := consumer.handleStockLowAlert(context.Background(), task); err != nil {
		t.Fatalf("handle low alert failed: %v", err)
	}
}

func TestHandlersRejectMalformedPayload(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	bad := asynq.NewTask(queue.TaskBalanceAudit, []byte("{"))
	if err := consumer.handleBalanceAudit(context.Background(), bad); err == nil {
		t.Fatalf("malformed payload should fail")
	}
	if err := consumer.handleStockLowAlert(context.Background(), asynq.NewTask(queue.TaskStockLowAlert, []byte("nope"))); err == nil {
		t.Fatalf("malformed payload should fail")
	}
	empty := mustTask(t, queue.TaskBalanceAudit, queue.BalanceAuditPayload{})
	if err := consumer.handleBalanceAudit(context.Background(), empty); err != nil {
		t.Fatalf("empty customer id should be skipped, got %v", err)
	}
	missing := mustTask(t, queue.TaskBalanceAudit, queue.BalanceAuditPayload{CustomerID: 999})
	if err := consumer.handleBalanceAudit(context.Background(), missing); err != nil {
		t.Fatalf("unknown customer should be skipped, got %v", err)
	}
}

func TestBalanceAuditRepairsDrift(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	customer := &models.Customer{Name: "Almacen Don Pepe", Balance: models.MustMoney("750")}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("seed customer failed: %v", err)
	}

	task := mustTask(t, queue.TaskBalanceAudit, queue.BalanceAuditPayload{CustomerID: customer.ID, Repair: true})
	if err := consumer.handleBalanceAudit(context.Background(), task); err != nil {
		t.Fatalf("handle balance audit failed: %v", err)
	}
	var reloaded models.Customer
	if err := db.First(&reloaded, customer.ID).Error; err != nil {
		t.Fatalf("reload customer failed: %v", err)
	}
	if !reloaded.Balance.IsZero() {
		t.Fatalf("balance should be repaired to zero, got %s", reloaded.Balance)
	}
}

func TestBalanceAuditSweepRunsInlineWithoutQueue(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	for _, name := range []string{"Kiosco La Esquina", "Bar El Trebol"} {
		if err := db.Create(&models.Customer{Name: name, Balance: models.MustMoney("100")}).Error; err != nil {
			t.Fatalf("seed customer failed: %v", err)
		}
	}

	task := mustTask(t, queue.TaskBalanceAuditSweep, queue.BalanceAuditSweepPayload{Repair: true})
	if err := consumer.handleBalanceAuditSweep(context.Background(), task); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	drifted, err := consumer.BalanceService.AuditAll(context.Background(), false)
	if err != nil {
		t.Fatalf("audit all failed: %v", err)
	}
	if len(drifted) != 0 {
		t.Fatalf("sweep should have repaired every balance, got %+v", drifted)
	}
}

func TestTriggerBalanceSweepRunsInlineWithoutQueue(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	customer := &models.Customer{Name: "Almacen Don Pepe", Balance: models.MustMoney("320")}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("seed customer failed: %v", err)
	}

	if err := consumer.triggerBalanceSweep(context.Background(), false); err != nil {
		t.Fatalf("audit-only sweep failed: %v", err)
	}
	var reloaded models.Customer
	if err := db.First(&reloaded, customer.ID).Error; err != nil {
		t.Fatalf("reload customer failed: %v", err)
	}
	if !reloaded.Balance.Same(models.MustMoney("320")) {
		t.Fatalf("audit without repair must not write, got %s", reloaded.Balance)
	}

	if err := consumer.triggerBalanceSweep(context.Background(), true); err != nil {
		t.Fatalf("repair sweep failed: %v", err)
	}
	if err := db.First(&reloaded, customer.ID).Error; err != nil {
		t.Fatalf("reload customer failed: %v", err)
	}
	if !reloaded.Balance.IsZero() {
		t.Fatalf("balance should be repaired to zero, got %s", reloaded.Balance)
	}
}

func TestRunExclusiveWithoutLockerAlwaysRuns(t *testing.T) {
	calls := 0
	ran, err := runExclusive(context.Background(), nil, balanceSweepLockKey, time.Second, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || !ran || calls != 1 {
		t.Fatalf("want one run, got ran=%v calls=%d err=%v", ran, calls, err)
	}

	boom := errors.New("boom")
	ran, err = runExclusive(context.Background(), nil, balanceSweepLockKey, time.Second, func(context.Context) error {
		return boom
	})
	if !ran || !errors.Is(err, boom) {
		t.Fatalf("fn error should surface, got ran=%v err=%v", ran, err)
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, config.WorkerConfig{}, &Consumer{}); err == nil {
		t.Fatalf("disabled queue should fail")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, config.WorkerConfig{}, nil); err == nil {
		t.Fatalf("nil consumer should fail")
	}
}
