package constants

// Order status
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusAssigned  = "assigned"
	OrderStatusDelivered = "delivered"
)

// Order payment status, always derived from amount_paid and total
const (
	PaymentStatusPending = "pending"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)

// Payment methods
const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCard     = "card"
	PaymentMethodCheck    = "check"
	PaymentMethodAccount  = "account"
)

// Actor roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSeller  = "seller"
	RoleCourier = "courier"
)

// Delivery exception reasons
const (
	ExceptionReasonCustomerRejects = "customer_rejects"
	ExceptionReasonStockShortage   = "stock_shortage"
	ExceptionReasonProductDamaged  = "product_damaged"
	ExceptionReasonProductExpired  = "product_expired"
	ExceptionReasonOrderError      = "order_error"
	ExceptionReasonPriceDifference = "price_difference"
	ExceptionReasonOther           = "other"
)

// Delivery exception resolution status
const (
	ResolutionPending           = "pending"
	ResolutionRescheduled       = "rescheduled"
	ResolutionCreditNote        = "credit_note"
	ResolutionCourierDiscount   = "courier_discount"
	ResolutionCompanyAbsorption = "company_absorption"
	ResolutionOtherResolved     = "other_resolved"
	ResolutionVoided            = "voided"
)

// Delivery exception audit actions
const (
	ExceptionActionCreated  = "created"
	ExceptionActionResolved = "resolved"
	ExceptionActionVoided   = "voided"
)

// Cash reconciliation status
const (
	ReconciliationPending          = "pending"
	ReconciliationSubmitted        = "submitted"
	ReconciliationApproved         = "approved"
	ReconciliationRejected         = "rejected"
	ReconciliationWithObservations = "with_observations"
)

// Review actions
const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
	ReviewActionObserve = "observe"
)

// Reconciliation adjustment types
const (
	AdjustmentShortage           = "shortage"
	AdjustmentSurplus            = "surplus"
	AdjustmentChangeNotGiven     = "change_not_given"
	AdjustmentBillingError       = "billing_error"
	AdjustmentAuthorizedDiscount = "authorized_discount"
	AdjustmentOther              = "other"
)

// Delivery route and stop status
const (
	RouteStatusPending    = "pending"
	RouteStatusInProgress = "in_progress"
	RouteStatusCompleted  = "completed"

	StopStatusPending      = "pending"
	StopStatusDelivered    = "delivered"
	StopStatusNotDelivered = "not_delivered"
)

// Order history field names
const (
	HistoryFieldCreation      = "creation"
	HistoryFieldStatus        = "status"
	HistoryFieldCourier       = "courier_id"
	HistoryFieldItems         = "items"
	HistoryFieldTotal         = "total"
	HistoryFieldAmountPaid    = "amount_paid"
	HistoryFieldPaymentMethod = "payment_method"
	HistoryFieldException     = "delivery_exception"
	HistoryFieldSequence      = "delivery_sequence"
)

// Order status transition policies
const (
	StatusPolicyOpen   = "open"
	StatusPolicyStrict = "strict"
)

// Async queue
const (
	QueueDefault          = "default"
	QueueCritical         = "critical"
	TaskStockLowAlert     = "stock:low_alert"
	TaskBalanceAudit      = "balance:audit"
	TaskBalanceAuditSweep = "balance:audit_sweep"
)

// ValidOrderStatus reports whether status is a known order status.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusAssigned, OrderStatusDelivered:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether method is accepted.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard, PaymentMethodCheck, PaymentMethodAccount:
		return true
	}
	return false
}

// ValidExceptionReason reports whether reason is a known exception reason.
func ValidExceptionReason(reason string) bool {
	switch reason {
	case ExceptionReasonCustomerRejects, ExceptionReasonStockShortage, ExceptionReasonProductDamaged,
		ExceptionReasonProductExpired, ExceptionReasonOrderError, ExceptionReasonPriceDifference, ExceptionReasonOther:
		return true
	}
	return false
}

// ReasonAllowsStockReturn reports whether goods affected for reason may go back to stock.
func ReasonAllowsStockReturn(reason string) bool {
	switch reason {
	case ExceptionReasonCustomerRejects, ExceptionReasonOrderError, ExceptionReasonPriceDifference:
		return true
	}
	return false
}

// ValidResolutionTarget reports whether status can be used to resolve an exception.
func ValidResolutionTarget(status string) bool {
	switch status {
	case ResolutionRescheduled, ResolutionCreditNote, ResolutionCourierDiscount,
		ResolutionCompanyAbsorption, ResolutionOtherResolved:
		return true
	}
	return false
}

// ValidAdjustmentType reports whether adjustmentType is known.
func ValidAdjustmentType(adjustmentType string) bool {
	switch adjustmentType {
	case AdjustmentShortage, AdjustmentSurplus, AdjustmentChangeNotGiven,
		AdjustmentBillingError, AdjustmentAuthorizedDiscount, AdjustmentOther:
		return true
	}
	return false
}

// ValidRole reports whether role is a known actor role.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleSeller, RoleCourier:
		return true
	}
	return false
}
