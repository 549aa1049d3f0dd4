package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db              *gorm.DB
	stock           *StockService
	balance         *BalanceService
	audit           *AuditService
	orders          *OrderService
	exceptions      *ExceptionService
	routes          *RouteService
	reconciliations *ReconciliationService
	payments        *PaymentService
	purchases       *PurchaseService
	products        *ProductService
	customers       *CustomerService
	admin           Actor
	seller          Actor
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()
	return setupServiceTestWithPolicy(t, constants.StatusPolicyOpen)
}

func setupServiceTestWithPolicy(t *testing.T, policy string) *serviceTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// one connection serializes transactions the way row locks do on postgres
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	tx := repository.NewTransactor(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	reconciliationRepo := repository.NewReconciliationRepository(db)

	env := &serviceTestEnv{db: db}
	env.stock = NewStockService(tx, productRepo, nil, true)
	env.balance = NewBalanceService(tx, customerRepo, paymentRepo)
	env.audit = NewAuditService(auditRepo, customerRepo, userRepo, productRepo)
	env.orders = NewOrderService(tx, orderRepo, productRepo, customerRepo, userRepo, auditRepo, paymentRepo,
		exceptionRepo, routeRepo, env.stock, env.balance, env.audit, NewStatusPolicy(policy), nil)
	env.exceptions = NewExceptionService(tx, exceptionRepo, orderRepo, env.stock, env.balance, env.audit, nil)
	env.routes = NewRouteService(tx, routeRepo, orderRepo, env.orders, nil)
	env.reconciliations = NewReconciliationService(tx, reconciliationRepo, routeRepo, orderRepo, userRepo, env.routes, nil, time.Minute)
	env.payments = NewPaymentService(tx, paymentRepo, customerRepo, orderRepo, env.balance, nil)
	env.purchases = NewPurchaseService(tx, purchaseRepo, productRepo, env.stock)
	env.products = NewProductService(productRepo, env.stock, nil)
	env.customers = NewCustomerService(customerRepo, env.balance, nil)

	admin := seedUser(t, db, "Admin", constants.RoleAdmin)
	seller := seedUser(t, db, "Seller", constants.RoleSeller)
	env.admin = Actor{ID: admin.ID, Role: admin.Role}
	env.seller = Actor{ID: seller.ID, Role: seller.Role}
	return env
}

func moneyOf(value string) models.Money {
	return models.MustMoney(value)
}

func seedUser(t *testing.T, db *gorm.DB, name, role string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Role: role, Active: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func seedCustomer(t *testing.T, db *gorm.DB, name string) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: name, Address: "Av. Siempre Viva 742"}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func seedProduct(t *testing.T, db *gorm.DB, name string, stock int, price string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Stock: stock, Price: moneyOf(price), Active: true}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func productStock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	return product.Stock
}

func customerBalance(t *testing.T, db *gorm.DB, id uint) models.Money {
	t.Helper()
	var customer models.Customer
	if err := db.First(&customer, id).Error; err != nil {
		t.Fatalf("load customer failed: %v", err)
	}
	return customer.Balance
}

func loadOrder(t *testing.T, env *serviceTestEnv, id uint) *models.Order {
	t.Helper()
	order, err := env.orders.GetOrder(id)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	return order
}

func createTestOrder(t *testing.T, env *serviceTestEnv, customerID uint, items ...CreateOrderItem) *models.Order {
	t.Helper()
	order, err := env.orders.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customerID,
		Items:      items,
	}, env.seller)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

// assertOrderConsistent checks that the stored total equals the sum of item subtotals
func assertOrderConsistent(t *testing.T, env *serviceTestEnv, orderID uint) *models.Order {
	t.Helper()
	order := loadOrder(t, env, orderID)
	sum := models.Money{}
	for _, item := range order.Items {
		if !item.Subtotal.Same(item.UnitPrice.Times(item.Quantity)) {
			t.Fatalf("item %d subtotal %s != %d x %s", item.ID, item.Subtotal, item.Quantity, item.UnitPrice)
		}
		sum = sum.Plus(item.Subtotal)
	}
	if !sum.Same(order.Total) {
		t.Fatalf("order %d total %s != sum of subtotals %s", order.ID, order.Total, sum)
	}
	return order
}

// assertNoDrift recomputes the balance without repair and expects it to match
func assertNoDrift(t *testing.T, env *serviceTestEnv, customerID uint) {
	t.Helper()
	report, err := env.balance.Recompute(context.Background(), customerID, false)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if !report.InSync() {
		t.Fatalf("balance drift: stored %s computed %s", report.Stored, report.Computed)
	}
}

func orderFilterForCustomer(customerID uint) repository.OrderListFilter {
	return repository.OrderListFilter{CustomerID: customerID}
}
