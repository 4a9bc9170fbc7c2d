package checkout

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/domain/storage"
	"sathi/internal/payments"
)

type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*paymentsrepo.Payment
	certs  map[int64]string
	clock  int64
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*paymentsrepo.Payment), certs: make(map[int64]string)}
}

func clonePayment(p *paymentsrepo.Payment) *paymentsrepo.Payment {
	c := *p
	return &c
}

func (m *memStore) Create(_ context.Context, p *paymentsrepo.Payment) (*paymentsrepo.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := clonePayment(p)
	c.ID = m.nextID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	m.rows[c.TransactionID] = c
	return clonePayment(c), nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*paymentsrepo.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.ID == id {
			return clonePayment(p), nil
		}
	}
	return nil, paymentsrepo.ErrNotFound
}

func (m *memStore) GetByTransactionID(_ context.Context, txID string) (*paymentsrepo.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[txID]
	if !ok {
		return nil, paymentsrepo.ErrNotFound
	}
	return clonePayment(p), nil
}

func (m *memStore) byID(id int64) *paymentsrepo.Payment {
	for _, p := range m.rows {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *memStore) SetProviderRef(_ context.Context, id int64, ref string, raw any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID(id)
	if p == nil {
		return paymentsrepo.ErrNotFound
	}
	p.ProviderRef = &ref
	if raw != nil {
		b, _ := json.Marshal(raw)
		p.GatewayResp = b
	}
	return nil
}

func (m *memStore) Transition(_ context.Context, id int64, to paymentsrepo.Status, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID(id)
	if p == nil || p.Status != paymentsrepo.StatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = to
	p.VerifiedAt = &now
	p.UpdatedAt = now
	if reason != "" {
		p.FailureReason = &reason
	}
	return true, nil
}

func (m *memStore) SetCertificateURL(_ context.Context, id int64, u string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID(id)
	if p == nil {
		return paymentsrepo.ErrNotFound
	}
	p.CertificateURL = &u
	m.certs[id] = u
	return nil
}

func (m *memStore) List(_ context.Context, f paymentsrepo.ListFilter) ([]*paymentsrepo.Payment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*paymentsrepo.Payment
	for _, p := range m.rows {
		if f.Status == "" || p.Status == f.Status {
			out = append(out, clonePayment(p))
		}
	}
	return out, len(out), nil
}

func (m *memStore) ListStalePending(_ context.Context, before time.Time, limit int) ([]*paymentsrepo.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*paymentsrepo.Payment
	for _, p := range m.rows {
		if p.Status == paymentsrepo.StatusPending && p.CreatedAt.Before(before) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastCheckedAt, out[j].LastCheckedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkChecked(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID(id)
	if p == nil {
		return paymentsrepo.ErrNotFound
	}
	// strictly increasing so rows checked in one pass keep their order
	m.clock++
	at := time.Now().Add(time.Duration(m.clock))
	p.LastCheckedAt = &at
	return nil
}

type memLogs struct {
	mu   sync.Mutex
	logs []*paymentsrepo.PaymentLog
}

func (m *memLogs) InsertPaymentLog(_ context.Context, id int64, t paymentsrepo.LogType, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, &paymentsrepo.PaymentLog{PaymentID: id, LogType: t, Payload: b})
	return nil
}

func (m *memLogs) ListByPayment(_ context.Context, id int64) ([]*paymentsrepo.PaymentLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*paymentsrepo.PaymentLog
	for _, l := range m.logs {
		if l.PaymentID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLogs) types(id int64) []paymentsrepo.LogType {
	logs, _ := m.ListByPayment(context.Background(), id)
	out := make([]paymentsrepo.LogType, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.LogType)
	}
	return out
}

// stubGateways stands in for the payment manager.
type stubGateways struct {
	validateErr error
	initiate    func(req payments.PaymentRequest) (payments.PaymentResult, error)
	verify      func(req payments.VerifyRequest) (*payments.VerificationResult, error)
	callback    func(q url.Values) (*payments.Callback, error)

	verifyCalls atomic.Int32
	lastVerify  atomic.Pointer[payments.VerifyRequest]
}

func (g *stubGateways) Validate(payments.PaymentRequest) error { return g.validateErr }

func (g *stubGateways) InitiatePayment(_ context.Context, req payments.PaymentRequest) (payments.PaymentResult, error) {
	return g.initiate(req)
}

func (g *stubGateways) VerifyPayment(_ context.Context, _ payments.Provider, req payments.VerifyRequest) (*payments.VerificationResult, error) {
	g.verifyCalls.Add(1)
	g.lastVerify.Store(&req)
	return g.verify(req)
}

func (g *stubGateways) ParseCallback(_ payments.Provider, q url.Values) (*payments.Callback, error) {
	return g.callback(q)
}

type countingNotifier struct {
	calls atomic.Int32
	err   error
}

func (c *countingNotifier) PaymentCompleted(context.Context, *paymentsrepo.Payment) error {
	c.calls.Add(1)
	return c.err
}

type busyGuard struct{}

func (busyGuard) Acquire(context.Context, string) (func(), bool, error) { return nil, false, nil }

type harness struct {
	svc      *Service
	store    *memStore
	logs     *memLogs
	gw       *stubGateways
	notifier *countingNotifier
}

func newHarness(opts Options) *harness {
	h := &harness{
		store:    newMemStore(),
		logs:     &memLogs{},
		notifier: &countingNotifier{},
		gw: &stubGateways{
			initiate: func(req payments.PaymentRequest) (payments.PaymentResult, error) {
				return payments.PaymentResult{Success: true, TransactionID: req.TransactionID, ProviderRef: req.TransactionID}, nil
			},
			verify: func(req payments.VerifyRequest) (*payments.VerificationResult, error) {
				return &payments.VerificationResult{Success: true, Terminal: true, State: "COMPLETE", Amount: req.Amount}, nil
			},
		},
	}
	if opts.Gateways == nil {
		opts.Gateways = h.gw
	}
	if opts.Notifier == nil {
		opts.Notifier = h.notifier
	}
	withTx := func(ctx context.Context, fn func(s *storage.PaymentsTx) error) error {
		return fn(&storage.PaymentsTx{Payments: h.store, PayLogs: h.logs})
	}
	h.svc = newService(h.store, h.logs, withTx, opts)
	return h
}
