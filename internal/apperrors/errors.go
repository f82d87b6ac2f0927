// Package apperrors defines the error-kind taxonomy used across the
// trading-cycle engine and the stable JSON envelope the HTTP layer
// renders them into.
package apperrors

import "net/http"

// AppError is the base error kind. Concrete kinds below set Status
// and Code; Message and Detail are populated per occurrence.
type AppError struct {
	Status  int
	Code    string
	Message string
	Detail  map[string]interface{}
}

func (e *AppError) Error() string {
	return e.Message
}

func newKind(status int, code string) func(string, map[string]interface{}) *AppError {
	return func(message string, detail map[string]interface{}) *AppError {
		return &AppError{Status: status, Code: code, Message: message, Detail: detail}
	}
}

var (
	// NewNotFound: resource not found.
	NewNotFound = newKind(http.StatusNotFound, "NOT_FOUND")
	// NewValidation: invalid input, never retried.
	NewValidation = newKind(http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	// NewBroker: broker call failed (transient, may be retried by the caller).
	NewBroker = newKind(http.StatusBadGateway, "BROKER_ERROR")
	// NewBrokerAuth: broker auth failed; caller clears the cached token and
	// retries exactly once.
	NewBrokerAuth = newKind(http.StatusUnauthorized, "BROKER_AUTH_ERROR")
	// NewStrategy: a strategy/risk invariant tripped (e.g. the daily-loss
	// circuit breaker).
	NewStrategy = newKind(http.StatusInternalServerError, "STRATEGY_ERROR")
	// NewDataCollection: a per-source data fetch failed; recorded, cycle continues.
	NewDataCollection = newKind(http.StatusBadGateway, "DATA_COLLECTION_ERROR")
	// NewDataPipeline: a non-recoverable data pipeline failure.
	NewDataPipeline = newKind(http.StatusInternalServerError, "DATA_PIPELINE_ERROR")
	// NewOrder: an order was rejected; recorded per-symbol, cycle continues.
	NewOrder = newKind(http.StatusBadRequest, "ORDER_ERROR")
	// NewDuplicateOrder: an order with the same idempotency reference was
	// already submitted.
	NewDuplicateOrder = newKind(http.StatusConflict, "DUPLICATE_ORDER")
	// NewInsufficientFunds: the account could not fund the order.
	NewInsufficientFunds = newKind(http.StatusBadRequest, "INSUFFICIENT_FUNDS")
	// NewAlert: an alert/notification-path failure.
	NewAlert = newKind(http.StatusBadRequest, "ALERT_ERROR")
)

// Internal is the catch-all for unhandled errors.
func Internal(message string) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: message}
}

// Body renders the error in the module's stable response shape.
func Body(err *AppError) map[string]interface{} {
	body := map[string]interface{}{
		"code":    err.Code,
		"message": err.Message,
	}
	if err.Detail != nil {
		body["detail"] = err.Detail
	}
	return map[string]interface{}{"error": body}
}

// As extracts an *AppError, wrapping unknown errors as Internal.
func As(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*AppError); ok {
		return ae
	}
	return Internal(err.Error())
}
