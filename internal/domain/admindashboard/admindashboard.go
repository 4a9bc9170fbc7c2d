package admindashboard

import (
	"context"
	"fmt"

	"sathi/internal/infra/dbx"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetOverview(ctx context.Context) (*Overview, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM payments),
			(SELECT COUNT(*) FROM payments WHERE status = 'pending'),
			(SELECT COUNT(*) FROM payments WHERE status = 'completed'),
			(SELECT COUNT(*) FROM payments WHERE status = 'failed'),

			(SELECT COALESCE(SUM(amount_paisa), 0) FROM payments WHERE status = 'completed' AND purpose = 'donation'),
			(SELECT COALESCE(SUM(amount_paisa), 0) FROM payments WHERE status = 'completed' AND purpose = 'membership'),
			(SELECT COALESCE(SUM(amount_paisa), 0) FROM payments WHERE status = 'completed' AND purpose = 'event'),

			(SELECT COUNT(*) FROM members WHERE status = 'pending'),
			(SELECT COUNT(*) FROM members WHERE status = 'approved')
	`

	var o Overview
	err := r.db.QueryRow(ctx, q).Scan(
		&o.TotalPayments,
		&o.PendingPayments,
		&o.CompletedPayments,
		&o.FailedPayments,

		&o.DonationsPaisa,
		&o.MembershipsPaisa,
		&o.EventsPaisa,

		&o.PendingMembers,
		&o.ApprovedMembers,
	)
	if err != nil {
		return nil, fmt.Errorf("get admin overview: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT provider, COUNT(*), COALESCE(SUM(amount_paisa), 0)
		FROM payments
		WHERE status = 'completed'
		GROUP BY provider
		ORDER BY provider
	`)
	if err != nil {
		return nil, fmt.Errorf("gateway totals: %w", err)
	}
	defer rows.Close()

	o.ByGateway = []GatewayTotal{}
	for rows.Next() {
		var g GatewayTotal
		if err := rows.Scan(&g.Provider, &g.Count, &g.AmountPaisa); err != nil {
			return nil, fmt.Errorf("scan gateway total: %w", err)
		}
		o.ByGateway = append(o.ByGateway, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gateway totals: %w", err)
	}

	return &o, nil
}
