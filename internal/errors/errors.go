package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError covers malformed user input, including bad HH:MM
// summary times. Never retryable.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("Formato de datos inválido. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewDataAccessError covers event-store failures. A failed scan is retried
// on the next tick by the timer itself, so callers must not loop.
func NewDataAccessError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("Data access error: %s", underlyingMsg),
		UserMessage: "Problema temporal con los datos, inténtalo más tarde",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewChannelDeliveryError covers failed Telegram sends. Delivery is
// at-most-once: the same reminder is never retried.
func NewChannelDeliveryError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("Channel delivery error: %s", underlyingMsg),
		UserMessage: "No se pudo entregar la notificación",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewSchedulerError covers scheduler lifecycle misuse, e.g. scheduling
// against a stopped core.
func NewSchedulerError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "El programador de notificaciones no está disponible",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       nil,
	}
}

// NewConfigError covers startup misconfiguration. These are the only errors
// allowed to abort initialization.
func NewConfigError(msg string) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     msg,
		UserMessage: "Error de configuración del servicio",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       nil,
	}
}
