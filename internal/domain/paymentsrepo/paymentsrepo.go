package paymentsrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sathi/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

const paymentColumns = `
	id, transaction_id, provider, provider_ref, amount_paisa, currency, status, purpose,
	reference_id, customer_name, customer_email, customer_phone, description, metadata,
	failure_reason, certificate_url, gateway_response, verified_at, last_checked_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner, extra ...any) (*Payment, error) {
	var p Payment
	var status, purpose string
	var gw []byte
	dest := []any{
		&p.ID, &p.TransactionID, &p.Provider, &p.ProviderRef, &p.AmountPaisa, &p.Currency, &status, &purpose,
		&p.ReferenceID, &p.CustomerName, &p.CustomerEmail, &p.CustomerPhone, &p.Description, &p.Metadata,
		&p.FailureReason, &p.CertificateURL, &gw, &p.VerifiedAt, &p.LastCheckedAt, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.Status = Status(status)
	p.Purpose = Purpose(purpose)
	if len(gw) > 0 {
		p.GatewayResp = json.RawMessage(gw)
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	if p.Currency == "" {
		p.Currency = "NPR"
	}
	if p.Purpose == "" {
		p.Purpose = PurposeDonation
	}
	p.Status = StatusPending

	if err := r.q.QueryRow(ctx, `
		INSERT INTO payments (
			transaction_id, provider, amount_paisa, currency, status, purpose, reference_id,
			customer_name, customer_email, customer_phone, description, metadata
		)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, p.TransactionID, p.Provider, p.AmountPaisa, p.Currency, string(p.Purpose), p.ReferenceID,
		p.CustomerName, p.CustomerEmail, p.CustomerPhone, p.Description, p.Metadata).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *Repository) GetByTransactionID(ctx context.Context, txID string) (*Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id=$1`, txID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment by transaction_id: %w", err)
	}
	return p, nil
}

func (r *Repository) SetProviderRef(ctx context.Context, paymentID int64, ref string, raw any) error {
	var jb []byte
	if raw != nil {
		if b, err := json.Marshal(raw); err == nil {
			jb = b
		}
	}
	_, err := r.q.Exec(ctx, `
		UPDATE payments SET provider_ref=$2, gateway_response=COALESCE($3, gateway_response), updated_at=now() WHERE id=$1
	`, paymentID, ref, jb)
	if err != nil {
		return fmt.Errorf("set provider_ref: %w", err)
	}
	return nil
}

// Transition is the only way a payment leaves pending. The status guard in
// the WHERE clause makes concurrent settlements race safely: exactly one
// caller sees changed=true.
func (r *Repository) Transition(ctx context.Context, paymentID int64, to Status, reason string) (bool, error) {
	if !to.Terminal() {
		return false, fmt.Errorf("transition to %q: not a terminal status", to)
	}

	var failure *string
	if to == StatusFailed && reason != "" {
		failure = &reason
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE payments
		   SET status=$2, failure_reason=$3, verified_at=now(), updated_at=now()
		 WHERE id=$1 AND status='pending'
	`, paymentID, string(to), failure)
	if err != nil {
		return false, fmt.Errorf("transition payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkChecked records a reconcile attempt on a payment.
func (r *Repository) MarkChecked(ctx context.Context, paymentID int64) error {
	_, err := r.q.Exec(ctx, `UPDATE payments SET last_checked_at=now() WHERE id=$1`, paymentID)
	if err != nil {
		return fmt.Errorf("mark payment checked: %w", err)
	}
	return nil
}

func (r *Repository) SetCertificateURL(ctx context.Context, paymentID int64, url string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payments SET certificate_url=$2, updated_at=now() WHERE id=$1
	`, paymentID, url)
	if err != nil {
		return fmt.Errorf("set certificate_url: %w", err)
	}
	return nil
}

// List returns payments with optional filters and the total count for
// pagination.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*Payment, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	rows, err := r.q.Query(ctx, `
SELECT `+paymentColumns+`,
  COUNT(*) OVER() AS total_count
FROM payments
WHERE
  ($1 = '' OR status = $1)
  AND ($2 = '' OR provider = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3::timestamptz)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5
`,
		string(f.Status),
		f.Provider,
		f.Since,
		f.Limit,
		f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Payment
		total int
	)
	for rows.Next() {
		var t int
		p, err := scanPayment(rows, &t)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return out, total, nil
}

// ListStalePending returns pending payments created before the cutoff.
// Rows never checked come first, then the ones checked longest ago, so a
// batch of payments that stay pending cannot hide newer ones.
func (r *Repository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE status='pending' AND created_at < $1
		ORDER BY last_checked_at ASC NULLS FIRST, created_at ASC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale payments: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
