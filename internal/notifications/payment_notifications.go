package notifications

import (
	"context"
	"errors"
	"fmt"

	"sathi/internal/domain/storage"

	"github.com/9ssi7/exponent"
)

var ErrNoPushTokens = errors.New("no push tokens")

// PaymentEvent is what admins see when a payment settles.
type PaymentEvent struct {
	TransactionID string
	Gateway       string
	Amount        string
	Purpose       string
	DonorName     string
}

// SendPaymentNotification pushes a completed payment to every active admin
// device plus any statically configured tokens.
func SendPaymentNotification(ctx context.Context, push PushSender, store *storage.Container, extraTokens []string, ev PaymentEvent) error {
	adminIDs, err := store.Users.ListActiveAdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	tokensMap, err := store.PushTokens.GetTokensByUserIDs(ctx, adminIDs)
	if err != nil {
		return fmt.Errorf("get push tokens: %w", err)
	}

	all := append([]string(nil), extraTokens...)
	for _, id := range adminIDs {
		all = append(all, tokensMap[id]...)
	}
	tokens := dedupe(all)
	if len(tokens) == 0 {
		return ErrNoPushTokens
	}

	title := fmt.Sprintf("New %s received", ev.Purpose)
	body := fmt.Sprintf("%s paid NPR %s via %s", ev.DonorName, ev.Amount, ev.Gateway)

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			// the admin app routes on data.screen
			Data: map[string]string{
				"type":          "payment_completed",
				"transactionId": ev.TransactionID,
				"screen":        "payments/" + ev.TransactionID,
			},
		})
	}

	_, err = push.Publish(ctx, msgs)
	return err
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
