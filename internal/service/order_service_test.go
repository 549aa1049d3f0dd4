package service

import (
	"context"
	"errors"
	"testing"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"
)

func TestCreateOrderDecrementsStockAndRecordsEverything(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 50, "900")
	soda := seedProduct(t, env.db, "Soda 1.5L", 20, "750")
	special := moneyOf("700")

	order, err := env.orders.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:    customer.ID,
		Items:         []CreateOrderItem{{ProductID: water.ID, Quantity: 4}, {ProductID: soda.ID, Quantity: 2, UnitPrice: &special}},
		ExpectedTotal: moneyOf("5000"),
		Notes:         "  entregar por la tarde ",
	}, env.seller)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.StockDeducted || order.Status != constants.OrderStatusPending {
		t.Fatalf("unexpected order state: %+v", order)
	}
	if order.PaymentMethod != constants.PaymentMethodCash || order.PaymentStatus != constants.PaymentStatusPending {
		t.Fatalf("unexpected payment defaults: method=%s status=%s", order.PaymentMethod, order.PaymentStatus)
	}
	if order.Notes != "entregar por la tarde" {
		t.Fatalf("notes should be trimmed, got %q", order.Notes)
	}
	assertOrderConsistent(t, env, order.ID)
	if !order.Total.Same(moneyOf("5000")) {
		t.Fatalf("total want 5000 got %s", order.Total)
	}
	if got := productStock(t, env.db, water.ID); got != 46 {
		t.Fatalf("water stock want 46 got %d", got)
	}
	if got := productStock(t, env.db, soda.ID); got != 18 {
		t.Fatalf("soda stock want 18 got %d", got)
	}
	if balance := customerBalance(t, env.db, customer.ID); !balance.Same(moneyOf("5000")) {
		t.Fatalf("balance want 5000 got %s", balance)
	}

	history, err := env.orders.ListHistory(order.ID)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 1 || history[0].Field != constants.HistoryFieldCreation {
		t.Fatalf("want one creation entry, got %+v", history)
	}
	if history[0].ActorID == nil || *history[0].ActorID != env.seller.ID {
		t.Fatalf("creation entry should carry the actor")
	}
}

func TestCreateOrderRejectsWholeBatchWithItemizedErrors(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Kiosco Central")
	water := seedProduct(t, env.db, "Agua 2L", 2, "900")
	soda := seedProduct(t, env.db, "Soda 1.5L", 1, "750")
	beer := seedProduct(t, env.db, "Cerveza 1L", 100, "1800")

	_, err := env.orders.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Items: []CreateOrderItem{
			{ProductID: beer.ID, Quantity: 10},
			{ProductID: water.ID, Quantity: 3},
			{ProductID: soda.ID, Quantity: 5},
		},
	}, env.seller)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("want insufficient stock got %v", err)
	}
	if problems := ProblemsOf(err); len(problems) != 2 {
		t.Fatalf("want both shortages reported, got %+v", problems)
	}
	if got := productStock(t, env.db, beer.ID); got != 100 {
		t.Fatalf("beer stock must be untouched, got %d", got)
	}
	var count int64
	env.db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("no order should be created, got %d", count)
	}
	if balance := customerBalance(t, env.db, customer.ID); !balance.IsZero() {
		t.Fatalf("balance must stay zero, got %s", balance)
	}
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Kiosco Central")
	water := seedProduct(t, env.db, "Agua 2L", 10, "900")

	_, err := env.orders.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []CreateOrderItem{{ProductID: water.ID, Quantity: 0}},
	}, env.seller)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want invalid input got %v", err)
	}
	if got := productStock(t, env.db, water.ID); got != 10 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
}

func TestCreateOrderTotalMismatchRollsBackStock(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Kiosco Central")
	water := seedProduct(t, env.db, "Agua 2L", 10, "900")

	_, err := env.orders.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:    customer.ID,
		Items:         []CreateOrderItem{{ProductID: water.ID, Quantity: 2}},
		ExpectedTotal: moneyOf("1000"),
	}, env.seller)
	if !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("want total mismatch got %v", err)
	}
	if got := productStock(t, env.db, water.ID); got != 10 {
		t.Fatalf("stock must be restored by rollback, got %d", got)
	}
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	env := setupServiceTest(t)
	water := seedProduct(t, env.db, "Agua 2L", 10, "900")

	_, err := env.orders.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 999,
		Items:      []CreateOrderItem{{ProductID: water.ID, Quantity: 1}},
	}, env.seller)
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("want customer not found got %v", err)
	}
}

func TestUpdatePaymentMovesBalanceAndPaymentStatus(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	crate := seedProduct(t, env.db, "Cajon Cerveza", 10, "1000")

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: crate.ID, Quantity: 1})
	if balance := customerBalance(t, env.db, customer.ID); !balance.Same(moneyOf("1000")) {
		t.Fatalf("balance after create want 1000 got %s", balance)
	}

	updated, err := env.orders.UpdatePayment(context.Background(), order.ID, UpdatePaymentInput{
		AmountPaid:    moneyOf("400"),
		PaymentMethod: constants.PaymentMethodTransfer,
	}, env.seller)
	if err != nil {
		t.Fatalf("update payment failed: %v", err)
	}
	if updated.PaymentStatus != constants.PaymentStatusPartial {
		t.Fatalf("want partial got %s", updated.PaymentStatus)
	}
	if balance := customerBalance(t, env.db, customer.ID); !balance.Same(moneyOf("600")) {
		t.Fatalf("balance after partial want 600 got %s", balance)
	}

	updated, err = env.orders.UpdatePayment(context.Background(), order.ID, UpdatePaymentInput{AmountPaid: moneyOf("1000")}, env.seller)
	if err != nil {
		t.Fatalf("update payment failed: %v", err)
	}
	if updated.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("want paid got %s", updated.PaymentStatus)
	}
	if updated.PaymentMethod != constants.PaymentMethodTransfer {
		t.Fatalf("method should be kept when not given, got %s", updated.PaymentMethod)
	}
	if balance := customerBalance(t, env.db, customer.ID); !balance.IsZero() {
		t.Fatalf("balance after full payment want 0 got %s", balance)
	}
	assertNoDrift(t, env, customer.ID)

	if _, err := env.orders.UpdatePayment(context.Background(), order.ID, UpdatePaymentInput{AmountPaid: moneyOf("-1")}, env.seller); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative amount should be rejected, got %v", err)
	}
}

func TestEditOrderItemsMovesOnlyTheDifference(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 50, "900")
	soda := seedProduct(t, env.db, "Soda 1.5L", 20, "750")
	beer := seedProduct(t, env.db, "Cerveza 1L", 30, "1800")

	order := createTestOrder(t, env, customer.ID,
		CreateOrderItem{ProductID: water.ID, Quantity: 10},
		CreateOrderItem{ProductID: soda.ID, Quantity: 5},
	)
	originalWaterItem := order.Items[0].ID

	edited, err := env.orders.EditOrderItems(context.Background(), order.ID, EditOrderItemsInput{
		Items: []CreateOrderItem{
			{ProductID: water.ID, Quantity: 4},
			{ProductID: beer.ID, Quantity: 2},
		},
	}, env.seller)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if got := productStock(t, env.db, water.ID); got != 46 {
		t.Fatalf("water stock want 46 got %d", got)
	}
	if got := productStock(t, env.db, soda.ID); got != 20 {
		t.Fatalf("soda stock want 20 got %d", got)
	}
	if got := productStock(t, env.db, beer.ID); got != 28 {
		t.Fatalf("beer stock want 28 got %d", got)
	}
	if len(edited.Items) != 2 {
		t.Fatalf("want 2 items got %d", len(edited.Items))
	}
	if edited.Items[0].ID != originalWaterItem || edited.Items[0].Quantity != 4 {
		t.Fatalf("water line should be updated in place: %+v", edited.Items[0])
	}
	assertOrderConsistent(t, env, order.ID)
	if !edited.Total.Same(moneyOf("7200")) {
		t.Fatalf("total want 7200 got %s", edited.Total)
	}
	if balance := customerBalance(t, env.db, customer.ID); !balance.Same(moneyOf("7200")) {
		t.Fatalf("balance want 7200 got %s", balance)
	}
	assertNoDrift(t, env, customer.ID)
}

func TestEditOrderItemsShortageLeavesOrderUntouched(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 12, "900")

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 10})
	_, err := env.orders.EditOrderItems(context.Background(), order.ID, EditOrderItemsInput{
		Items: []CreateOrderItem{{ProductID: water.ID, Quantity: 13}},
	}, env.seller)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("want insufficient stock got %v", err)
	}
	problems := ProblemsOf(err)
	if len(problems) != 1 || problems[0].Requested != 3 || problems[0].Available != 2 {
		t.Fatalf("unexpected problems: %+v", problems)
	}
	reloaded := assertOrderConsistent(t, env, order.ID)
	if reloaded.Items[0].Quantity != 10 {
		t.Fatalf("item must be unchanged, got %d", reloaded.Items[0].Quantity)
	}
	if got := productStock(t, env.db, water.ID); got != 2 {
		t.Fatalf("stock must be unchanged, got %d", got)
	}
}

func TestEditDeliveredOrderIsRejected(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 12, "900")

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 1})
	if _, err := env.orders.ChangeStatus(context.Background(), order.ID, constants.OrderStatusDelivered, env.seller); err != nil {
		t.Fatalf("change status failed: %v", err)
	}
	_, err := env.orders.EditOrderItems(context.Background(), order.ID, EditOrderItemsInput{
		Items: []CreateOrderItem{{ProductID: water.ID, Quantity: 2}},
	}, env.seller)
	if !errors.Is(err, ErrOrderDelivered) {
		t.Fatalf("want order delivered got %v", err)
	}
}

func TestDeleteOrderRestoresStockAndArchives(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 20, "900")

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 5})
	archive, err := env.orders.DeleteOrder(context.Background(), order.ID, DeleteOrderInput{RestoreStock: true, Reason: "cliente cancelo"}, env.admin)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !archive.StockRestored || archive.CustomerName != customer.Name || archive.CreatedByName != "Seller" {
		t.Fatalf("unexpected archive: %+v", archive)
	}
	if len(archive.Items) != 1 || archive.Items[0].ProductName != water.Name || archive.Items[0].Quantity != 5 {
		t.Fatalf("unexpected archived items: %+v", archive.Items)
	}
	if got := productStock(t, env.db, water.ID); got != 20 {
		t.Fatalf("stock want 20 got %d", got)
	}
	if _, err := env.orders.GetOrder(order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("order should be gone, got %v", err)
	}
	history, err := env.orders.ListHistory(order.ID)
	if err != nil || len(history) != 0 {
		t.Fatalf("history should be removed with the order: %v %+v", err, history)
	}
	if balance := customerBalance(t, env.db, customer.ID); !balance.IsZero() {
		t.Fatalf("balance want 0 got %s", balance)
	}
	archives, total, err := env.orders.ListDeletedOrders(repository.DeletedOrderListFilter{CustomerID: customer.ID})
	if err != nil || total != 1 || archives[0].OrderID != order.ID {
		t.Fatalf("archive not listed: %v %d %+v", err, total, archives)
	}
}

func TestDeleteOrderWithoutRestoreKeepsStock(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 20, "900")

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 5})
	archive, err := env.orders.DeleteOrder(context.Background(), order.ID, DeleteOrderInput{}, env.admin)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if archive.StockRestored {
		t.Fatalf("stock should not be flagged restored")
	}
	if got := productStock(t, env.db, water.ID); got != 15 {
		t.Fatalf("stock want 15 got %d", got)
	}
	assertNoDrift(t, env, customer.ID)
}

func TestStrictPolicyRejectsSkippingSteps(t *testing.T) {
	env := setupServiceTestWithPolicy(t, constants.StatusPolicyStrict)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 20, "900")

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 1})
	if _, err := env.orders.ChangeStatus(context.Background(), order.ID, constants.OrderStatusDelivered, env.seller); !errors.Is(err, ErrStatusTransition) {
		t.Fatalf("strict policy should reject pending -> delivered, got %v", err)
	}
	for _, status := range []string{constants.OrderStatusPreparing, constants.OrderStatusAssigned, constants.OrderStatusDelivered} {
		updated, err := env.orders.ChangeStatus(context.Background(), order.ID, status, env.seller)
		if err != nil {
			t.Fatalf("change to %s failed: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("want %s got %s", status, updated.Status)
		}
	}
	delivered := loadOrder(t, env, order.ID)
	if delivered.DeliveredAt == nil {
		t.Fatalf("delivered_at should be set")
	}
	if _, err := env.orders.ChangeStatus(context.Background(), order.ID, constants.OrderStatusPending, env.seller); !errors.Is(err, ErrStatusTransition) {
		t.Fatalf("delivered is final under strict, got %v", err)
	}
	if _, err := env.orders.ChangeStatus(context.Background(), order.ID, "lost", env.seller); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status should be invalid input, got %v", err)
	}
}

func TestOpenPolicyAllowsReopeningDeliveredOrder(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 20, "900")

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 1})
	if _, err := env.orders.ChangeStatus(context.Background(), order.ID, constants.OrderStatusDelivered, env.seller); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	reopened, err := env.orders.ChangeStatus(context.Background(), order.ID, constants.OrderStatusPending, env.seller)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.DeliveredAt != nil {
		t.Fatalf("delivered_at should be cleared")
	}
}

func TestAssignCourier(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 20, "900")
	courier := seedUser(t, env.db, "Repartidor", constants.RoleCourier)

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 1})
	if _, err := env.orders.AssignCourier(context.Background(), order.ID, env.seller.ID, false, env.admin); !errors.Is(err, ErrCourierInvalid) {
		t.Fatalf("seller is not a courier, got %v", err)
	}
	assigned, err := env.orders.AssignCourier(context.Background(), order.ID, courier.ID, true, env.admin)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if assigned.CourierID == nil || *assigned.CourierID != courier.ID || assigned.Status != constants.OrderStatusAssigned {
		t.Fatalf("unexpected assignment: %+v", assigned)
	}
	cleared, err := env.orders.AssignCourier(context.Background(), order.ID, 0, false, env.admin)
	if err != nil {
		t.Fatalf("unassign failed: %v", err)
	}
	if cleared.CourierID != nil {
		t.Fatalf("courier should be cleared")
	}

	history, err := env.orders.ListHistory(order.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	courierChanges := 0
	for _, entry := range history {
		if entry.Field == constants.HistoryFieldCourier {
			courierChanges++
		}
	}
	if courierChanges != 2 {
		t.Fatalf("want 2 courier history entries got %d", courierChanges)
	}
}

func TestDeleteOrderRequiresPrivilege(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 20, "900")
	courierUser := seedUser(t, env.db, "Repartidor", constants.RoleCourier)
	managerUser := seedUser(t, env.db, "Encargado", constants.RoleManager)

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 5})
	for _, actor := range []Actor{env.seller, {ID: courierUser.ID, Role: courierUser.Role}} {
		_, err := env.orders.DeleteOrder(context.Background(), order.ID, DeleteOrderInput{RestoreStock: true}, actor)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s should not delete orders, got %v", actor.Role, err)
		}
	}
	if got := productStock(t, env.db, water.ID); got != 15 {
		t.Fatalf("stock must stay at 15, got %d", got)
	}
	loadOrder(t, env, order.ID)

	if _, err := env.orders.DeleteOrder(context.Background(), order.ID, DeleteOrderInput{RestoreStock: true}, Actor{ID: managerUser.ID, Role: managerUser.Role}); err != nil {
		t.Fatalf("manager delete failed: %v", err)
	}
	if got := productStock(t, env.db, water.ID); got != 20 {
		t.Fatalf("stock want 20 got %d", got)
	}
}

func TestDeleteOrderArchivesCourierName(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 20, "900")
	courier := seedUser(t, env.db, "Repartidor", constants.RoleCourier)

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 2})
	if _, err := env.orders.AssignCourier(context.Background(), order.ID, courier.ID, true, env.admin); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	archive, err := env.orders.DeleteOrder(context.Background(), order.ID, DeleteOrderInput{}, env.admin)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if archive.CourierID == nil || *archive.CourierID != courier.ID || archive.CourierName != courier.Name {
		t.Fatalf("courier should be archived by name: %+v", archive)
	}
	if archive.CreatedByName != "Seller" || archive.Status != constants.OrderStatusAssigned {
		t.Fatalf("unexpected archive: %+v", archive)
	}
}

func TestDeleteOrderToleratesMissingCreator(t *testing.T) {
	env := setupServiceTest(t)
	customer := seedCustomer(t, env.db, "Almacen Don Pepe")
	water := seedProduct(t, env.db, "Agua 2L", 20, "900")

	order := createTestOrder(t, env, customer.ID, CreateOrderItem{ProductID: water.ID, Quantity: 2})
	if err := env.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_by", 999).Error; err != nil {
		t.Fatalf("point creator at a missing user failed: %v", err)
	}

	archive, err := env.orders.DeleteOrder(context.Background(), order.ID, DeleteOrderInput{RestoreStock: true}, env.admin)
	if err != nil {
		t.Fatalf("delete should not depend on the creator row: %v", err)
	}
	if archive.CreatedByID == nil || *archive.CreatedByID != 999 || archive.CreatedByName != "" {
		t.Fatalf("missing creator should archive an empty name: %+v", archive)
	}
	if archive.CourierID != nil || archive.CourierName != "" {
		t.Fatalf("no courier expected: %+v", archive)
	}
	if archive.CustomerName != customer.Name || !archive.StockRestored {
		t.Fatalf("unexpected archive: %+v", archive)
	}
	if got := productStock(t, env.db, water.ID); got != 20 {
		t.Fatalf("stock want 20 got %d", got)
	}
}
