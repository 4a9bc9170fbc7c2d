package members

import (
	"context"
	"errors"
	"fmt"

	"sathi/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

const memberColumns = `id, full_name, email, phone, address, membership, motivation, status,
	payment_id, reviewed_by, reviewed_at, review_note, created_at, updated_at`

func scanMember(row pgx.Row, extra ...any) (*Member, error) {
	var m Member
	var status string
	dest := []any{
		&m.ID, &m.FullName, &m.Email, &m.Phone, &m.Address, &m.Membership, &m.Motivation, &status,
		&m.PaymentID, &m.ReviewedBy, &m.ReviewedAt, &m.ReviewNote, &m.CreatedAt, &m.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m.Status = Status(status)
	return &m, nil
}

func (r *Repository) Create(ctx context.Context, m *Member) (*Member, error) {
	if m.Membership == "" {
		m.Membership = "general"
	}
	m.Status = StatusPending
	err := r.q.QueryRow(ctx, `
		INSERT INTO members (full_name, email, phone, address, membership, motivation, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, m.FullName, m.Email, m.Phone, m.Address, m.Membership, m.Motivation, m.PaymentID).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_members_payment_id" {
			return nil, ErrPaymentLinked
		}
		return nil, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Member, error) {
	m, err := scanMember(r.q.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *Repository) List(ctx context.Context, status Status, limit, offset int) ([]*Member, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+memberColumns+`, COUNT(*) OVER() AS total_count
		FROM members
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Member
		total int
	)
	for rows.Next() {
		var t int
		m, err := scanMember(rows, &t)
		if err != nil {
			return nil, 0, fmt.Errorf("scan member: %w", err)
		}
		total = t
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repository) Review(ctx context.Context, id int64, to Status, reviewerID int64, note string) (*Member, error) {
	if to != StatusApproved && to != StatusRejected {
		return nil, fmt.Errorf("review member: invalid status %q", to)
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	m, err := scanMember(r.q.QueryRow(ctx, `
		UPDATE members
		   SET status=$2, reviewed_by=$3, reviewed_at=now(), review_note=$4, updated_at=now()
		 WHERE id=$1 AND status='pending'
		RETURNING `+memberColumns, id, string(to), reviewerID, notePtr))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("review member: %w", err)
	}

	// Either the id is unknown or someone already decided.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyReviewed
}
