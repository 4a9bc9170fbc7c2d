package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"sathi/internal/callbackguard"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/domain/storage"
	"sathi/internal/payments"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrValidation = errors.New("invalid checkout request")
	ErrNotFound   = paymentsrepo.ErrNotFound
)

// Failure reasons stored on the payment row.
const (
	ReasonInitiateFailed    = "initiate_failed"
	ReasonSignatureMismatch = "signature_mismatch"
	ReasonAmountMismatch    = "amount_mismatch"
	ReasonReferenceMismatch = "reference_mismatch"
	ReasonInProgress        = "in_progress"
	ReasonProviderError     = "provider_error"
	ReasonAwaitingPayment   = "awaiting_payment"
	ReasonExpired           = "expired"
)

// Gateways is the part of payments.PaymentManager the service drives.
type Gateways interface {
	Validate(req payments.PaymentRequest) error
	InitiatePayment(ctx context.Context, req payments.PaymentRequest) (payments.PaymentResult, error)
	VerifyPayment(ctx context.Context, p payments.Provider, req payments.VerifyRequest) (*payments.VerificationResult, error)
	ParseCallback(p payments.Provider, q url.Values) (*payments.Callback, error)
}

type txFunc func(ctx context.Context, fn func(s *storage.PaymentsTx) error) error

type InitiateInput struct {
	payments.PaymentRequest
	Purpose     paymentsrepo.Purpose
	ReferenceID string
}

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomePending   Outcome = "pending"
)

// Settlement is the result of handling one callback or verify request.
// Changed is true only for the request that moved the row out of pending.
type Settlement struct {
	Payment *paymentsrepo.Payment
	Outcome Outcome
	Reason  string
	State   string
	Changed bool
}

type Service struct {
	payments paymentsrepo.Store
	logs     paymentsrepo.LogsStore
	withTx   txFunc
	gateways Gateways
	guard    callbackguard.Guard
	notifier Notifier
	logger   *zap.SugaredLogger

	// returnHosts restricts returnUrl/cancelUrl. Empty allows any http(s) URL.
	returnHosts map[string]struct{}
	newID       func() string

	// verifyGrace is how long a gateway "failed" answer to a lookup without
	// callback data is not trusted. eSewa reports NOT_FOUND until the donor
	// finishes paying.
	verifyGrace time.Duration
	now         func() time.Time

	wg sync.WaitGroup
}

type Options struct {
	Gateways    Gateways
	Guard       callbackguard.Guard
	Notifier    Notifier
	Logger      *zap.SugaredLogger
	ReturnHosts []string
	VerifyGrace time.Duration
}

func NewService(store *storage.Container, opts Options) *Service {
	return newService(store.Payments, store.PayLogs, store.WithPaymentsTx, opts)
}

func newService(ps paymentsrepo.Store, logs paymentsrepo.LogsStore, withTx txFunc, opts Options) *Service {
	s := &Service{
		payments:    ps,
		logs:        logs,
		withTx:      withTx,
		gateways:    opts.Gateways,
		guard:       opts.Guard,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		returnHosts: make(map[string]struct{}),
		newID:       uuid.NewString,
		verifyGrace: opts.VerifyGrace,
		now:         time.Now,
	}
	if s.guard == nil {
		s.guard = callbackguard.NewMemory(30 * time.Second)
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	for _, h := range opts.ReturnHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.returnHosts[h] = struct{}{}
		}
	}
	return s
}

// Initiate stores a pending payment and asks the gateway for a form or
// hosted URL. A gateway failure marks the new row failed.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (payments.PaymentResult, error) {
	if err := s.gateways.Validate(in.PaymentRequest); err != nil {
		return payments.PaymentResult{Success: false, Error: err.Error()}, err
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = paymentsrepo.PurposeDonation
	}
	if !purpose.Valid() {
		err := fmt.Errorf("%w: unknown purpose %q", ErrValidation, purpose)
		return payments.PaymentResult{Success: false, Error: err.Error()}, err
	}
	for field, raw := range map[string]string{"returnUrl": in.ReturnURL, "cancelUrl": in.CancelURL} {
		if err := s.checkReturnURL(raw); err != nil {
			err = fmt.Errorf("%w: %s %v", ErrValidation, field, err)
			return payments.PaymentResult{Success: false, Error: err.Error()}, err
		}
	}

	req := in.PaymentRequest
	req.TransactionID = s.newID()
	req.Amount = req.Amount.Round(2)

	meta := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if req.ReturnURL != "" {
		meta["return_url"] = req.ReturnURL
	}
	if req.CancelURL != "" {
		meta["cancel_url"] = req.CancelURL
	}

	rec := &paymentsrepo.Payment{
		TransactionID: req.TransactionID,
		Provider:      string(req.Gateway),
		AmountPaisa:   payments.ToPaisa(req.Amount),
		Currency:      payments.DefaultCurrency,
		Status:        paymentsrepo.StatusPending,
		Purpose:       purpose,
		CustomerName:  strings.TrimSpace(req.CustomerInfo.Name),
		CustomerEmail: strings.ToLower(strings.TrimSpace(req.CustomerInfo.Email)),
		CustomerPhone: strings.TrimSpace(req.CustomerInfo.Phone),
		Description:   strings.TrimSpace(req.Description),
		Metadata:      meta,
	}
	if ref := strings.TrimSpace(in.ReferenceID); ref != "" {
		rec.ReferenceID = &ref
	}

	created, err := s.payments.Create(ctx, rec)
	if err != nil {
		return payments.PaymentResult{Success: false, Error: "could not record payment"}, fmt.Errorf("create payment: %w", err)
	}

	s.log(ctx, created.ID, paymentsrepo.LogRequest, map[string]any{
		"stage":   "initiate",
		"gateway": req.Gateway,
		"amount":  payments.FormatAmount(req.Amount),
	})

	res, err := s.gateways.InitiatePayment(ctx, req)
	if err != nil {
		if _, terr := s.payments.Transition(ctx, created.ID, paymentsrepo.StatusFailed, ReasonInitiateFailed); terr != nil {
			s.logger.Errorw("mark payment failed after initiate error", "transaction_id", created.TransactionID, "err", terr.Error())
		}
		s.log(ctx, created.ID, paymentsrepo.LogError, map[string]any{"stage": "initiate", "error": err.Error()})
		res.TransactionID = created.TransactionID
		return res, err
	}

	if res.ProviderRef != "" {
		if err := s.payments.SetProviderRef(ctx, created.ID, res.ProviderRef, res.Fields); err != nil {
			s.logger.Errorw("save provider ref", "transaction_id", created.TransactionID, "err", err.Error())
		}
	}
	s.log(ctx, created.ID, paymentsrepo.LogResponse, map[string]any{
		"stage":       "initiate",
		"payment_url": res.PaymentURL,
		"fields":      res.Fields,
	})

	s.logger.Infow("payment initiated", "transaction_id", created.TransactionID, "gateway", req.Gateway, "purpose", purpose)
	return res, nil
}

func (s *Service) checkReturnURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("must be an absolute http(s) URL")
	}
	if len(s.returnHosts) == 0 {
		return nil
	}
	if _, ok := s.returnHosts[strings.ToLower(u.Hostname())]; !ok {
		return fmt.Errorf("host %q is not allowed", u.Hostname())
	}
	return nil
}

// HandleCallback parses a gateway redirect and settles the payment it names.
func (s *Service) HandleCallback(ctx context.Context, provider payments.Provider, q url.Values) (*Settlement, error) {
	cb, err := s.gateways.ParseCallback(provider, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.Settle(ctx, provider, cb)
}

// Reverify settles a payment from its stored values only.
func (s *Service) Reverify(ctx context.Context, txID string) (*Settlement, error) {
	p, err := s.payments.GetByTransactionID(ctx, txID)
	if err != nil {
		return nil, err
	}
	provider, ok := payments.ParseProvider(p.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: stored provider %q", ErrValidation, p.Provider)
	}
	return s.Settle(ctx, provider, &payments.Callback{TransactionID: p.TransactionID})
}

func (s *Service) Status(ctx context.Context, txID string) (*paymentsrepo.Payment, error) {
	return s.payments.GetByTransactionID(ctx, txID)
}

// Settle decides the outcome of a callback. The callback is only trusted to
// name the transaction: a bad signature, a claimed amount that differs from
// the stored one or a foreign reference fails the payment outright, and
// everything else is confirmed with the gateway before the row moves.
func (s *Service) Settle(ctx context.Context, provider payments.Provider, cb *payments.Callback) (*Settlement, error) {
	if cb == nil || strings.TrimSpace(cb.TransactionID) == "" {
		return nil, fmt.Errorf("%w: callback without transaction id", ErrValidation)
	}
	txID := strings.TrimSpace(cb.TransactionID)

	release, ok, err := s.guard.Acquire(ctx, txID)
	switch {
	case err != nil:
		// the row-level CAS still protects us
		s.logger.Warnw("callback guard unavailable", "transaction_id", txID, "err", err.Error())
	case !ok:
		p, err := s.payments.GetByTransactionID(ctx, txID)
		if err != nil {
			return nil, err
		}
		return settled(p, ReasonInProgress, "", false), nil
	default:
		defer release()
	}

	p, err := s.payments.GetByTransactionID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if p.Provider != string(provider) {
		return nil, fmt.Errorf("%w: payment %s belongs to %s", ErrValidation, txID, p.Provider)
	}
	if p.Status.Terminal() {
		return settled(p, "", "", false), nil
	}

	redirected := cb.Data != nil || cb.Status != ""
	if redirected {
		s.log(ctx, p.ID, paymentsrepo.LogCallback, map[string]any{
			"status":            cb.Status,
			"signature_invalid": cb.SignatureInvalid,
			"data":              cb.Data,
		})
	}

	if reason := rejectCallback(p, cb); reason != "" {
		s.logger.Warnw("callback rejected", "transaction_id", txID, "provider", provider, "reason", reason)
		return s.finish(ctx, p, paymentsrepo.StatusFailed, reason, "", nil)
	}

	ref := p.Ref()
	if ref == "" {
		ref = strings.TrimSpace(cb.ProviderRef)
	}
	ver, err := s.gateways.VerifyPayment(ctx, provider, payments.VerifyRequest{
		TransactionID: p.TransactionID,
		ProviderRef:   ref,
		Amount:        p.Amount(),
		Data:          cb.Data,
	})
	if err != nil {
		s.logger.Errorw("verify payment", "transaction_id", txID, "provider", provider, "err", err.Error())
		s.log(ctx, p.ID, paymentsrepo.LogError, map[string]any{"stage": "verify", "error": err.Error()})
		return settled(p, ReasonProviderError, "", false), nil
	}

	// Keep a reference handed out on the redirect (IME Pay TokenId) once the
	// gateway has not rejected it, so later lookups can send it.
	if p.Ref() == "" && ref != "" && (ver.Success || !ver.Terminal) {
		if err := s.payments.SetProviderRef(ctx, p.ID, ref, nil); err != nil {
			s.logger.Errorw("save provider ref", "transaction_id", txID, "err", err.Error())
		}
	}

	switch {
	case ver.Success && !ver.Amount.IsZero() && !ver.Amount.Equal(p.Amount()):
		return s.finish(ctx, p, paymentsrepo.StatusFailed, ReasonAmountMismatch, ver.State, ver)
	case ver.Success:
		return s.finish(ctx, p, paymentsrepo.StatusCompleted, "", ver.State, ver)
	case ver.Terminal && !redirected && s.young(p):
		s.log(ctx, p.ID, paymentsrepo.LogVerify, verifyPayload(ver))
		return settled(p, ReasonAwaitingPayment, ver.State, false), nil
	case ver.Terminal:
		return s.finish(ctx, p, paymentsrepo.StatusFailed, gatewayReason(ver.State), ver.State, ver)
	default:
		s.log(ctx, p.ID, paymentsrepo.LogVerify, verifyPayload(ver))
		return settled(p, "", ver.State, false), nil
	}
}

// Expire fails a payment that is still pending. The reconciler calls it
// once a payment has outlived the reconcile window.
func (s *Service) Expire(ctx context.Context, txID string) (*Settlement, error) {
	release, ok, err := s.guard.Acquire(ctx, txID)
	switch {
	case err != nil:
		s.logger.Warnw("callback guard unavailable", "transaction_id", txID, "err", err.Error())
	case !ok:
		p, err := s.payments.GetByTransactionID(ctx, txID)
		if err != nil {
			return nil, err
		}
		return settled(p, ReasonInProgress, "", false), nil
	default:
		defer release()
	}

	p, err := s.payments.GetByTransactionID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return settled(p, "", "", false), nil
	}
	return s.finish(ctx, p, paymentsrepo.StatusFailed, ReasonExpired, "", nil)
}

func (s *Service) young(p *paymentsrepo.Payment) bool {
	return s.verifyGrace > 0 && s.now().Sub(p.CreatedAt) < s.verifyGrace
}

func rejectCallback(p *paymentsrepo.Payment, cb *payments.Callback) string {
	switch {
	case cb.SignatureInvalid:
		return ReasonSignatureMismatch
	case cb.ClaimedAmount != nil && !cb.ClaimedAmount.Equal(p.Amount()):
		return ReasonAmountMismatch
	case cb.ProviderRef != "" && p.Ref() != "" && cb.ProviderRef != p.Ref():
		return ReasonReferenceMismatch
	}
	return ""
}

func gatewayReason(state string) string {
	state = strings.ToLower(strings.TrimSpace(state))
	if state == "" {
		return "gateway_failed"
	}
	return "gateway_" + strings.ReplaceAll(state, " ", "_")
}

// finish applies a terminal decision. Only the caller whose CAS succeeds
// fires side effects.
func (s *Service) finish(ctx context.Context, p *paymentsrepo.Payment, to paymentsrepo.Status, reason, state string, ver *payments.VerificationResult) (*Settlement, error) {
	var changed bool
	err := s.withTx(ctx, func(tx *storage.PaymentsTx) error {
		var err error
		changed, err = tx.Payments.Transition(ctx, p.ID, to, reason)
		if err != nil {
			return err
		}
		if ver != nil {
			if err := tx.PayLogs.InsertPaymentLog(ctx, p.ID, paymentsrepo.LogVerify, verifyPayload(ver)); err != nil {
				return err
			}
		}
		return tx.PayLogs.InsertPaymentLog(ctx, p.ID, paymentsrepo.LogDecision, map[string]any{
			"status":  to,
			"reason":  reason,
			"changed": changed,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("settle payment %s: %w", p.TransactionID, err)
	}

	cur, err := s.payments.GetByTransactionID(ctx, p.TransactionID)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Infow("payment settled", "transaction_id", cur.TransactionID, "status", cur.Status, "reason", reason)
		if cur.Status == paymentsrepo.StatusCompleted {
			s.notify(cur)
		}
	}
	return settled(cur, reason, state, changed), nil
}

// notify runs side effects off the request path.
func (s *Service) notify(p *paymentsrepo.Payment) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorw("payment notifier panicked", "transaction_id", p.TransactionID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.notifier.PaymentCompleted(ctx, p); err != nil {
			s.logger.Errorw("payment notifications", "transaction_id", p.TransactionID, "err", err.Error())
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) log(ctx context.Context, paymentID int64, t paymentsrepo.LogType, payload any) {
	if err := s.logs.InsertPaymentLog(ctx, paymentID, t, payload); err != nil {
		s.logger.Warnw("insert payment log", "payment_id", paymentID, "type", t, "err", err.Error())
	}
}

func verifyPayload(ver *payments.VerificationResult) map[string]any {
	return map[string]any{
		"state":        ver.State,
		"success":      ver.Success,
		"terminal":     ver.Terminal,
		"amount":       payments.FormatAmount(ver.Amount),
		"provider_ref": ver.ProviderRef,
		"raw":          ver.Raw,
	}
}

func settled(p *paymentsrepo.Payment, reason, state string, changed bool) *Settlement {
	out := &Settlement{Payment: p, Reason: reason, State: state, Changed: changed}
	switch p.Status {
	case paymentsrepo.StatusCompleted:
		out.Outcome = OutcomeCompleted
	case paymentsrepo.StatusFailed:
		out.Outcome = OutcomeFailed
		if out.Reason == "" && p.FailureReason != nil {
			out.Reason = *p.FailureReason
		}
	default:
		out.Outcome = OutcomePending
	}
	return out
}
