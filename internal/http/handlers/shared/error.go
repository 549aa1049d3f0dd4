package shared

import (
	"errors"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog logger carrying the request_id
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError writes an error response and logs err when present
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// mappedHandlerError maps a service error to a response code
type mappedHandlerError struct {
	target error
	code   int
}

var domainErrorRules = []mappedHandlerError{
	{target: service.ErrForbidden, code: response.CodeForbidden},
	{target: service.ErrInvalidInput, code: response.CodeBadRequest},
	{target: service.ErrInsufficientStock, code: response.CodeBadRequest},
	{target: service.ErrTotalMismatch, code: response.CodeBadRequest},
	{target: service.ErrCourierInvalid, code: response.CodeBadRequest},
	{target: service.ErrProductNotFound, code: response.CodeNotFound},
	{target: service.ErrCustomerNotFound, code: response.CodeNotFound},
	{target: service.ErrUserNotFound, code: response.CodeNotFound},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound},
	{target: service.ErrOrderItemNotFound, code: response.CodeNotFound},
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound},
	{target: service.ErrExceptionNotFound, code: response.CodeNotFound},
	{target: service.ErrRouteNotFound, code: response.CodeNotFound},
	{target: service.ErrRouteStopNotFound, code: response.CodeNotFound},
	{target: service.ErrReconciliationNotFound, code: response.CodeNotFound},
	{target: service.ErrPurchaseNotFound, code: response.CodeNotFound},
	{target: service.ErrRoleNotFound, code: response.CodeNotFound},
	{target: service.ErrOrderDelivered, code: response.CodeConflict},
	{target: service.ErrStatusTransition, code: response.CodeConflict},
	{target: service.ErrExceptionNotPending, code: response.CodeConflict},
	{target: service.ErrExceptionVoided, code: response.CodeConflict},
	{target: service.ErrRouteCompleted, code: response.CodeConflict},
	{target: service.ErrReconciliationExists, code: response.CodeConflict},
	{target: service.ErrReconciliationState, code: response.CodeConflict},
	{target: service.ErrPolicyStoreUnavailable, code: response.CodeConflict},
}

// DomainErrorCode response code for err; system errors map to CodeInternal
func DomainErrorCode(err error) int {
	for _, rule := range domainErrorRules {
		if errors.Is(err, rule.target) {
			return rule.code
		}
	}
	return response.CodeInternal
}

// RespondDomainError writes a service error. Itemized problems go to data.errors.
// Unmapped errors are logged and answered with fallbackMsg.
func RespondDomainError(c *gin.Context, err error, fallbackMsg string) {
	code := DomainErrorCode(err)
	if code == response.CodeInternal {
		RespondError(c, code, fallbackMsg, err)
		return
	}
	var domainErr *service.DomainError
	msg := err.Error()
	if errors.As(err, &domainErr) && domainErr.Kind != nil {
		msg = domainErr.Kind.Error()
	}
	if problems := service.ProblemsOf(err); len(problems) > 0 {
		response.ErrorWithData(c, code, msg, gin.H{"errors": problems})
		return
	}
	response.Error(c, code, msg)
}
