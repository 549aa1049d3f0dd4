package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// errorRecorder keeps every error gorm would log
type errorRecorder struct {
	gormlogger.Interface
	mu     sync.Mutex
	errors []error
}

func (r *errorRecorder) Trace(_ context.Context, _ time.Time, _ func() (string, int64), err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func setupOrderRepositoryTest(t *testing.T) (*GormOrderRepository, *GormExceptionRepository, *errorRecorder) {
	t.Helper()
	recorder := &errorRecorder{Interface: gormlogger.Default.LogMode(gormlogger.Silent)}
	dsn := fmt.Sprintf("file:order_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: recorder})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate orders failed: %v", err)
	}
	return NewOrderRepository(db), NewExceptionRepository(db), recorder
}

func seedRepositoryOrder(t *testing.T, repo *GormOrderRepository, items ...models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{
		CustomerID:    1,
		Status:        constants.OrderStatusPending,
		PaymentStatus: constants.PaymentStatusPending,
		PaymentMethod: constants.PaymentMethodCash,
	}
	if err := repo.Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestOrderRepositoryItemLookupsReturnNilWithoutLoggingErrors(t *testing.T) {
	repo, _, recorder := setupOrderRepositoryTest(t)
	order := seedRepositoryOrder(t, repo,
		models.OrderItem{ProductID: 7, Quantity: 2, UnitPrice: models.MustMoney("50"), Subtotal: models.MustMoney("100")},
	)
	other := seedRepositoryOrder(t, repo)

	item, err := repo.GetItem(order.ID, order.Items[0].ID)
	if err != nil || item == nil || item.ProductID != 7 {
		t.Fatalf("get item failed: %v %+v", err, item)
	}
	byProduct, err := repo.FindItemByProduct(order.ID, 7)
	if err != nil || byProduct == nil || byProduct.ID != item.ID {
		t.Fatalf("find by product failed: %v %+v", err, byProduct)
	}

	misses := []struct {
		name string
		call func() (*models.OrderItem, error)
	}{
		{"unknown item", func() (*models.OrderItem, error) { return repo.GetItem(order.ID, 999) }},
		{"item of another order", func() (*models.OrderItem, error) { return repo.GetItem(other.ID, item.ID) }},
		{"zero id", func() (*models.OrderItem, error) { return repo.GetItem(order.ID, 0) }},
		{"unknown product", func() (*models.OrderItem, error) { return repo.FindItemByProduct(order.ID, 8) }},
	}
	for _, miss := range misses {
		got, err := miss.call()
		if err != nil || got != nil {
			t.Fatalf("%s: want nil, nil got %+v %v", miss.name, got, err)
		}
	}
	if len(recorder.errors) != 0 {
		t.Fatalf("lookups should not log errors, got %v", recorder.errors)
	}
}

func TestExceptionRepositoryRepointItem(t *testing.T) {
	orders, exceptions, _ := setupOrderRepositoryTest(t)
	order := seedRepositoryOrder(t, orders)
	rows := []models.DeliveryException{
		{OrderID: order.ID, OrderItemID: 1, ProductID: 7, AffectedQuantity: 4, Reason: constants.ExceptionReasonOther, ResolutionStatus: constants.ResolutionPending},
		{OrderID: order.ID, OrderItemID: 1, ProductID: 7, AffectedQuantity: 6, Reason: constants.ExceptionReasonOther, ResolutionStatus: constants.ResolutionPending},
		{OrderID: order.ID, OrderItemID: 2, ProductID: 8, AffectedQuantity: 1, Reason: constants.ExceptionReasonOther, ResolutionStatus: constants.ResolutionPending},
	}
	for i := range rows {
		if err := exceptions.Create(&rows[i]); err != nil {
			t.Fatalf("create exception failed: %v", err)
		}
	}

	if err := exceptions.RepointItem(order.ID, 1, 5); err != nil {
		t.Fatalf("repoint failed: %v", err)
	}
	if err := exceptions.RepointItem(order.ID+1, 2, 9); err != nil {
		t.Fatalf("repoint on another order failed: %v", err)
	}
	listed, err := exceptions.ListByOrder(order.ID)
	if err != nil || len(listed) != 3 {
		t.Fatalf("list exceptions failed: %v %+v", err, listed)
	}
	want := []uint{5, 5, 2}
	for i, exception := range listed {
		if exception.OrderItemID != want[i] {
			t.Fatalf("exception %d: want item %d got %d", exception.ID, want[i], exception.OrderItemID)
		}
	}
}
