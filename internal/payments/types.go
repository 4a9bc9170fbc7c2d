package payments

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider identifies a payment gateway.
type Provider string

const (
	ProviderEsewa      Provider = "esewa"
	ProviderKhalti     Provider = "khalti"
	ProviderIMEPay     Provider = "imepay"
	ProviderConnectIPS Provider = "connectips"
)

// SupportedProviders lists every gateway the service knows how to talk to.
var SupportedProviders = []Provider{ProviderEsewa, ProviderKhalti, ProviderIMEPay, ProviderConnectIPS}

// ParseProvider maps a raw gateway string to a Provider.
func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, sp := range SupportedProviders {
		if sp == p {
			return p, true
		}
	}
	return "", false
}

// Environment selects sandbox or production gateway hosts.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

const DefaultCurrency = "NPR"

// Credentials are the per-gateway merchant settings shared by every adapter.
type Credentials struct {
	MerchantID  string
	SecretKey   string
	Environment Environment
	SuccessURL  string
	FailureURL  string
}

func (c Credentials) production() bool {
	return c.Environment == Production
}

type CustomerInfo struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"required,nepaliphone"`
}

// PaymentRequest is the gateway-agnostic input to InitiatePayment.
type PaymentRequest struct {
	Gateway      Provider          `json:"gateway"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency"`
	Description  string            `json:"description"`
	CustomerInfo CustomerInfo      `json:"customerInfo"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ReturnURL    string            `json:"returnUrl"`
	CancelURL    string            `json:"cancelUrl"`

	// TransactionID is assigned per attempt; generated when empty.
	TransactionID string `json:"-"`
}

// PaymentResult is the normalized answer of InitiatePayment.
type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	PaymentURL    string `json:"paymentUrl,omitempty"`
	FormHTML      string `json:"formHtml,omitempty"`
	Error         string `json:"error,omitempty"`

	ProviderRef string            `json:"-"`
	Fields      map[string]string `json:"-"`
}

// FormRequest is what an adapter needs to build a signed payment form.
type FormRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	ProductName   string
	Customer      CustomerInfo
}

// FormResult is either an auto-submit form (Action + Fields) or a hosted
// redirect (PaymentURL).
type FormResult struct {
	Action      string
	Method      string
	Fields      map[string]string
	PaymentURL  string
	ProviderRef string
}

// VerifyRequest carries the values stored on our side. Amount is the amount
// we expect to have been charged, never the one echoed by the browser.
type VerifyRequest struct {
	TransactionID string
	ProviderRef   string
	Amount        decimal.Decimal
	Data          map[string]string
}

// VerificationResult is the normalized outcome of a gateway status lookup.
type VerificationResult struct {
	Success     bool
	Terminal    bool
	State       string
	Amount      decimal.Decimal
	ProviderRef string
	Raw         json.RawMessage
}

// Callback is the provider redirect, parsed but not trusted. ProviderRef is
// only set when the gateway echoes the reference we stored at initiation
// (Khalti pidx) or hands out the one later lookups need (IME Pay TokenId);
// gateway settlement codes stay in Data.
type Callback struct {
	TransactionID    string
	ProviderRef      string
	Status           string
	ClaimedAmount    *decimal.Decimal
	SignatureInvalid bool
	Data             map[string]string
}

const (
	StateAmountMismatch    = "AMOUNT_MISMATCH"
	StateReferenceMismatch = "REFERENCE_MISMATCH"
)
