package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sathi/internal/certificates"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/domain/storage"
	"sathi/internal/mailer"
	"sathi/internal/notifications"
	"sathi/internal/payments"

	"go.uber.org/multierr"
)

// Notifier runs the side effects of a payment that just completed.
type Notifier interface {
	PaymentCompleted(ctx context.Context, p *paymentsrepo.Payment) error
}

type NopNotifier struct{}

func (NopNotifier) PaymentCompleted(context.Context, *paymentsrepo.Payment) error { return nil }

// FanoutNotifier runs every sink in order and joins their errors. Sinks may
// enrich p for the ones after them (the certificate URL for the receipt).
type FanoutNotifier struct {
	sinks []Notifier
}

func NewFanoutNotifier(sinks ...Notifier) *FanoutNotifier {
	out := &FanoutNotifier{}
	for _, s := range sinks {
		if s != nil {
			out.sinks = append(out.sinks, s)
		}
	}
	return out
}

func (f *FanoutNotifier) PaymentCompleted(ctx context.Context, p *paymentsrepo.Payment) error {
	var errs error
	for _, s := range f.sinks {
		errs = multierr.Append(errs, s.PaymentCompleted(ctx, p))
	}
	return errs
}

// CertificateSink issues a certificate for donations and memberships and
// stores its URL on the payment.
type CertificateSink struct {
	Issuer   *certificates.Issuer
	Payments paymentsrepo.Store
}

func (c *CertificateSink) PaymentCompleted(ctx context.Context, p *paymentsrepo.Payment) error {
	if p.Purpose != paymentsrepo.PurposeDonation && p.Purpose != paymentsrepo.PurposeMembership {
		return nil
	}
	if p.CertificateURL != nil && *p.CertificateURL != "" {
		return nil
	}

	issuedAt := time.Now()
	if p.VerifiedAt != nil {
		issuedAt = *p.VerifiedAt
	}
	u, err := c.Issuer.Issue(ctx, certificates.Certificate{
		PaymentID: p.ID,
		Name:      p.CustomerName,
		Amount:    payments.FormatAmount(p.Amount()),
		Purpose:   string(p.Purpose),
		IssuedAt:  issuedAt,
	})
	if err != nil {
		return fmt.Errorf("issue certificate: %w", err)
	}
	if err := c.Payments.SetCertificateURL(ctx, p.ID, u); err != nil {
		return fmt.Errorf("save certificate url: %w", err)
	}
	p.CertificateURL = &u
	return nil
}

// ReceiptSink emails the donor.
type ReceiptSink struct {
	Mailer mailer.Client
}

func (r *ReceiptSink) PaymentCompleted(ctx context.Context, p *paymentsrepo.Payment) error {
	if p.CustomerEmail == "" {
		return nil
	}
	date := p.UpdatedAt
	if p.VerifiedAt != nil {
		date = *p.VerifiedAt
	}
	cert := ""
	if p.CertificateURL != nil {
		cert = *p.CertificateURL
	}

	data := struct {
		Name           string
		Purpose        string
		Currency       string
		Amount         string
		Gateway        string
		TransactionID  string
		ProviderRef    string
		Date           string
		CertificateURL string
	}{
		Name:           p.CustomerName,
		Purpose:        string(p.Purpose),
		Currency:       p.Currency,
		Amount:         payments.FormatAmount(p.Amount()),
		Gateway:        p.Provider,
		TransactionID:  p.TransactionID,
		ProviderRef:    p.Ref(),
		Date:           date.Format("02 Jan 2006 15:04"),
		CertificateURL: cert,
	}

	if _, err := r.Mailer.Send(mailer.PaymentReceiptTemplate, p.CustomerName, p.CustomerEmail, data); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}
	return nil
}

// AdminPushSink alerts admin devices.
type AdminPushSink struct {
	Push        notifications.PushSender
	Store       *storage.Container
	ExtraTokens []string
}

func (a *AdminPushSink) PaymentCompleted(ctx context.Context, p *paymentsrepo.Payment) error {
	err := notifications.SendPaymentNotification(ctx, a.Push, a.Store, a.ExtraTokens, notifications.PaymentEvent{
		TransactionID: p.TransactionID,
		Gateway:       p.Provider,
		Amount:        payments.FormatAmount(p.Amount()),
		Purpose:       string(p.Purpose),
		DonorName:     p.CustomerName,
	})
	if errors.Is(err, notifications.ErrNoPushTokens) {
		return nil
	}
	return err
}
