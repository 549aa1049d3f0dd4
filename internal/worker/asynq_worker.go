package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/provider"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/queue"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer async task consumer
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register binds task handlers to mux
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskStockLowAlert, c.handleStockLowAlert)
	mux.HandleFunc(queue.TaskBalanceAudit, c.handleBalanceAudit)
	mux.HandleFunc(queue.TaskBalanceAuditSweep, c.handleBalanceAuditSweep)
}

func (c *Consumer) handleStockLowAlert(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_stock_low_alert_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.StockLowAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_stock_low_alert_unmarshal_failed", "error", err)
		return err
	}
	if len(payload.ProductIDs) == 0 {
		logger.Debugw("worker_stock_low_alert_skip_empty_payload")
		return nil
	}
	_, err := c.reportLowStock(payload.ProductIDs)
	return err
}

// reportLowStock logs the products of ids still at or below their minimum and returns them
func (c *Consumer) reportLowStock(ids []uint) ([]uint, error) {
	products, err := c.ProductRepo.ListByIDs(ids)
	if err != nil {
		logger.Warnw("worker_stock_low_alert_fetch_failed", "product_ids", ids, "error", err)
		return nil, err
	}
	low := make([]uint, 0, len(products))
	for _, product := range products {
		if !product.BelowMinimum() {
			continue
		}
		low = append(low, product.ID)
		logger.Warnw("stock_below_minimum",
			"product_id", product.ID,
			"product_name", product.Name,
			"stock", product.Stock,
			"min_stock", product.MinStock,
		)
	}
	if len(low) == 0 {
		logger.Debugw("worker_stock_low_alert_resolved", "product_ids", ids)
	}
	return low, nil
}

func (c *Consumer) handleBalanceAudit(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_balance_audit_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BalanceAuditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_balance_audit_unmarshal_failed", "error", err)
		return err
	}
	if payload.CustomerID == 0 {
		logger.Debugw("worker_balance_audit_skip_invalid_payload", "customer_id", payload.CustomerID)
		return nil
	}
	if c.BalanceService == nil {
		logger.Warnw("worker_balance_audit_skip_service_nil", "customer_id", payload.CustomerID)
		return nil
	}
	_, err := c.BalanceService.Recompute(ctx, payload.CustomerID, payload.Repair)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			logger.Debugw("worker_balance_audit_skip_customer_not_found", "customer_id", payload.CustomerID)
			return nil
		}
		logger.Warnw("worker_balance_audit_failed", "customer_id", payload.CustomerID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleBalanceAuditSweep(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_balance_audit_sweep_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BalanceAuditSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_balance_audit_sweep_unmarshal_failed", "error", err)
		return err
	}
	return c.sweepBalances(ctx, payload.Repair)
}

// triggerBalanceSweep queues a sweep task for whichever replica picks it up, or sweeps inline when the queue is off
func (c *Consumer) triggerBalanceSweep(ctx context.Context, repair bool) error {
	if !c.QueueClient.Enabled() {
		return c.sweepBalances(ctx, repair)
	}
	if err := c.QueueClient.EnqueueBalanceAuditSweep(queue.BalanceAuditSweepPayload{Repair: repair}, 0); err != nil {
		logger.Warnw("worker_balance_audit_sweep_schedule_failed", "error", err)
		return err
	}
	logger.Debugw("worker_balance_audit_sweep_scheduled", "repair", repair)
	return nil
}

// sweepBalances fans out one audit task per customer, or audits inline when the queue is off
func (c *Consumer) sweepBalances(ctx context.Context, repair bool) error {
	if c.BalanceService == nil {
		logger.Warnw("worker_balance_audit_sweep_skip_service_nil")
		return nil
	}
	if !c.QueueClient.Enabled() {
		_, err := c.BalanceService.AuditAll(ctx, repair)
		if err != nil {
			logger.Warnw("worker_balance_audit_sweep_failed", "error", err)
		}
		return err
	}
	ids, err := c.CustomerRepo.ListIDs()
	if err != nil {
		logger.Warnw("worker_balance_audit_sweep_list_failed", "error", err)
		return err
	}
	for _, id := range ids {
		if err := c.QueueClient.EnqueueBalanceAudit(queue.BalanceAuditPayload{CustomerID: id, Repair: repair}); err != nil {
			logger.Warnw("worker_balance_audit_enqueue_failed", "customer_id", id, "error", err)
			return err
		}
	}
	logger.Infow("worker_balance_audit_sweep_enqueued", "customers", len(ids), "repair", repair)
	return nil
}
