package payments

import (
	"errors"
	"strings"
)

var (
	ErrValidation      = errors.New("invalid payment request")
	ErrGatewayDisabled = errors.New("gateway not registered")
	ErrProvider        = errors.New("payment provider error")
	ErrInvalidCallback = errors.New("invalid gateway callback")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a PaymentRequest.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "invalid payment request: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
