package paymentsrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("payment not found")

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

type Purpose string

const (
	PurposeDonation   Purpose = "donation"
	PurposeMembership Purpose = "membership"
	PurposeEvent      Purpose = "event"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeDonation, PurposeMembership, PurposeEvent:
		return true
	}
	return false
}

type Payment struct {
	ID             int64             `json:"id"`
	TransactionID  string            `json:"transaction_id"`
	Provider       string            `json:"provider"`     // esewa, khalti, imepay, connectips
	ProviderRef    *string           `json:"provider_ref"` // pidx, refId, ...
	AmountPaisa    int64             `json:"amount_paisa"`
	Currency       string            `json:"currency"`
	Status         Status            `json:"status"`
	Purpose        Purpose           `json:"purpose"`
	ReferenceID    *string           `json:"reference_id,omitempty"`
	CustomerName   string            `json:"customer_name"`
	CustomerEmail  string            `json:"customer_email"`
	CustomerPhone  string            `json:"customer_phone"`
	Description    string            `json:"description"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	FailureReason  *string           `json:"failure_reason,omitempty"`
	CertificateURL *string           `json:"certificate_url,omitempty"`
	GatewayResp    json.RawMessage   `json:"gateway_response,omitempty" swaggertype:"object"`
	VerifiedAt     *time.Time        `json:"verified_at,omitempty"`
	LastCheckedAt  *time.Time        `json:"last_checked_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Amount is the stored amount in rupees.
func (p *Payment) Amount() decimal.Decimal {
	return decimal.New(p.AmountPaisa, -2)
}

func (p *Payment) Ref() string {
	if p.ProviderRef == nil {
		return ""
	}
	return *p.ProviderRef
}

type ListFilter struct {
	Status   Status
	Provider string
	Since    *time.Time
	Limit    int
	Offset   int
}

type Store interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByTransactionID(ctx context.Context, txID string) (*Payment, error)
	SetProviderRef(ctx context.Context, paymentID int64, ref string, raw any) error
	// Transition moves a pending payment to a terminal status. changed is
	// false when the row was already terminal.
	Transition(ctx context.Context, paymentID int64, to Status, reason string) (changed bool, err error)
	SetCertificateURL(ctx context.Context, paymentID int64, url string) error
	List(ctx context.Context, f ListFilter) ([]*Payment, int, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*Payment, error)
	MarkChecked(ctx context.Context, paymentID int64) error
}
