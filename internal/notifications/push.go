package notifications

import (
	"context"

	"github.com/9ssi7/exponent"
	"go.uber.org/multierr"
)

// Expo rejects requests with more than 100 messages.
const expoBatchSize = 100

// PushSender is tied to the exponent SDK types.
type PushSender interface {
	Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error)
}

type ExpoAdapter struct {
	client    *exponent.Client
	batchSize int
}

func NewExpoAdapter(c *exponent.Client) *ExpoAdapter {
	return &ExpoAdapter{client: c, batchSize: expoBatchSize}
}

// Publish sends msgs in batches. A failed batch does not stop the rest;
// the errors are combined.
func (a *ExpoAdapter) Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	var (
		out  []*exponent.MessageResponse
		errs error
	)
	for _, batch := range chunk(msgs, a.batchSize) {
		res, err := a.client.Publish(ctx, batch)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, res...)
	}
	return out, errs
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}
