package queue

import (
	"encoding/json"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskStockLowAlert products reached their minimum stock
	TaskStockLowAlert = constants.TaskStockLowAlert
	// TaskBalanceAudit recompute one customer balance
	TaskBalanceAudit = constants.TaskBalanceAudit
	// TaskBalanceAuditSweep fan out balance audits for every customer
	TaskBalanceAuditSweep = constants.TaskBalanceAuditSweep
)

// StockLowAlertPayload products whose stock fell to or below the minimum
type StockLowAlertPayload struct {
	ProductIDs []uint `json:"product_ids"`
}

// BalanceAuditPayload customer balance recompute request
type BalanceAuditPayload struct {
	CustomerID uint `json:"customer_id"`
	Repair     bool `json:"repair"`
}

// BalanceAuditSweepPayload audit every customer
type BalanceAuditSweepPayload struct {
	Repair bool `json:"repair"`
}

// NewStockLowAlertTask creates a low stock alert task
func NewStockLowAlertTask(payload StockLowAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockLowAlert, body), nil
}

// NewBalanceAuditTask creates a balance audit task
func NewBalanceAuditTask(payload BalanceAuditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceAudit, body), nil
}

// NewBalanceAuditSweepTask creates a sweep task
func NewBalanceAuditSweepTask(payload BalanceAuditSweepPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceAuditSweep, body), nil
}
