package members

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("member not found")
	ErrAlreadyReviewed = errors.New("membership application already reviewed")
	ErrPaymentLinked   = errors.New("payment already linked to a membership application")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Member struct {
	ID         int64      `json:"id"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	Membership string     `json:"membership"` // general, life, volunteer
	Motivation string     `json:"motivation"`
	Status     Status     `json:"status"`
	PaymentID  *int64     `json:"payment_id,omitempty"`
	ReviewedBy *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote *string    `json:"review_note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Store interface {
	Create(ctx context.Context, m *Member) (*Member, error)
	GetByID(ctx context.Context, id int64) (*Member, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Member, int, error)
	// Review records the decision of reviewerID. It fails with
	// ErrAlreadyReviewed unless the application is still pending.
	Review(ctx context.Context, id int64, to Status, reviewerID int64, note string) (*Member, error)
}
