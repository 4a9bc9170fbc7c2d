package payments

import (
	"context"
	"net/url"
)

// PaymentGateway defines a common interface for all payment providers
type PaymentGateway interface {
	// BuildPaymentForm signs the attempt and returns either form fields to
	// auto-post or a hosted payment URL.
	BuildPaymentForm(ctx context.Context, req FormRequest) (*FormResult, error)

	// VerifyPayment asks the provider for the real outcome of an attempt.
	VerifyPayment(ctx context.Context, req VerifyRequest) (*VerificationResult, error)

	// ParseCallback extracts the provider's redirect parameters.
	ParseCallback(q url.Values) (*Callback, error)
}
