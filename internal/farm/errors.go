package farm

import (
	"errors"
	"fmt"
)

// Failure kinds. Every rejected action returns an *ActionError wrapping one of these.
var (
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrInvalidState         = errors.New("invalid state")
	ErrUnsuitableConditions = errors.New("unsuitable conditions")
	ErrServiceUnavailable   = errors.New("external service unavailable")
	ErrInvalidInput         = errors.New("invalid input")
)

// ActionError is a recoverable action failure with a reason fit for display.
type ActionError struct {
	Op     string
	Kind   error
	Reason string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ActionError) Unwrap() error {
	return e.Kind
}

// KindName is the short machine name of the failure kind.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientResource):
		return "insufficient_resource"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrUnsuitableConditions):
		return "unsuitable_conditions"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return "internal"
}

// Reason extracts the display reason from an action error.
func Reason(err error) string {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
