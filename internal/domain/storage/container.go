package storage

import (
	"context"
	"fmt"

	"sathi/internal/domain/admindashboard"
	"sathi/internal/domain/members"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/domain/pushtokens"
	"sathi/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool       *pgxpool.Pool // required by WithPaymentsTx
	Users      users.Store
	Members    members.Store
	PushTokens pushtokens.Store
	Payments   paymentsrepo.Store
	PayLogs    paymentsrepo.LogsStore
	Dashboard  admindashboard.Store
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:       db,
		Users:      users.NewRepository(db),
		Members:    members.NewRepository(db),
		PushTokens: pushtokens.NewRepository(db),
		Payments:   paymentsrepo.NewRepository(db),
		PayLogs:    paymentsrepo.NewLogsRepository(db),
		Dashboard:  admindashboard.NewRepository(db),
	}
}

// PaymentsTx is a tx-scoped set of repos for atomic units of work.
type PaymentsTx struct {
	Payments paymentsrepo.Store
	PayLogs  paymentsrepo.LogsStore
}

// WithPaymentsTx runs fn in a single transaction. Any error rolls back.
func (c *Container) WithPaymentsTx(ctx context.Context, fn func(s *PaymentsTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	s := &PaymentsTx{
		Payments: paymentsrepo.NewRepository(tx),
		PayLogs:  paymentsrepo.NewLogsRepository(tx),
	}

	if err := fn(s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
