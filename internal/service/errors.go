package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrForbidden              = errors.New("forbidden")
	ErrProductNotFound        = errors.New("product not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrCourierInvalid         = errors.New("courier invalid")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderItemNotFound      = errors.New("order item not found")
	ErrOrderDelivered         = errors.New("order already delivered")
	ErrStatusTransition       = errors.New("status transition not allowed")
	ErrTotalMismatch          = errors.New("order total mismatch")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrExceptionNotFound      = errors.New("delivery exception not found")
	ErrExceptionNotPending    = errors.New("delivery exception not pending")
	ErrExceptionVoided        = errors.New("delivery exception already voided")
	ErrRouteNotFound          = errors.New("route not found")
	ErrRouteCompleted         = errors.New("route already completed")
	ErrRouteStopNotFound      = errors.New("route stop not found")
	ErrReconciliationNotFound = errors.New("reconciliation not found")
	ErrReconciliationExists   = errors.New("reconciliation already exists for route")
	ErrReconciliationState    = errors.New("reconciliation state does not allow this action")
	ErrPurchaseNotFound       = errors.New("purchase not found")
	ErrRoleNotFound           = errors.New("role not found")
	ErrPolicyStoreUnavailable = errors.New("policy store unavailable")
)

// Problem codes
const (
	ProblemInvalidQuantity   = "invalid_quantity"
	ProblemProductNotFound   = "product_not_found"
	ProblemInsufficientStock = "insufficient_stock"
	ProblemInvalidField      = "invalid_field"
	ProblemTotalMismatch     = "total_mismatch"
	ProblemAffectedQuantity  = "affected_quantity_exceeds_item"
)

// Problem one itemized validation failure
type Problem struct {
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	ProductID uint   `json:"product_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
	Message   string `json:"message"`
}

// DomainError a rejected operation with every problem found. errors.Is matches Kind.
type DomainError struct {
	Kind     error
	Problems []Problem
}

func (e *DomainError) Error() string {
	if e == nil || e.Kind == nil {
		return "domain error"
	}
	if len(e.Problems) == 0 {
		return e.Kind.Error()
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), strings.Join(parts, "; "))
}

// Unwrap exposes Kind
func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func newDomainError(kind error, problems ...Problem) *DomainError {
	return &DomainError{Kind: kind, Problems: problems}
}

func invalidField(field, message string) *DomainError {
	return newDomainError(ErrInvalidInput, Problem{Code: ProblemInvalidField, Field: field, Message: message})
}

// ProblemsOf returns the itemized problems carried by err, if any
func ProblemsOf(err error) []Problem {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Problems
	}
	return nil
}
