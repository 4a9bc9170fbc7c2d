package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"sathi/internal/auth"
	"sathi/internal/checkout"
	"sathi/internal/config"
	"sathi/internal/domain/admindashboard"
	"sathi/internal/domain/members"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/domain/pushtokens"
	"sathi/internal/domain/storage"
	"sathi/internal/domain/users"
	"sathi/internal/payments"
	"sathi/internal/ratelimiter"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCheckout struct {
	initiate func(checkout.InitiateInput) (payments.PaymentResult, error)
	callback func(payments.Provider, url.Values) (*checkout.Settlement, error)
	reverify func(string) (*checkout.Settlement, error)
	status   func(string) (*paymentsrepo.Payment, error)
}

func (f *fakeCheckout) Initiate(_ context.Context, in checkout.InitiateInput) (payments.PaymentResult, error) {
	return f.initiate(in)
}

func (f *fakeCheckout) HandleCallback(_ context.Context, p payments.Provider, q url.Values) (*checkout.Settlement, error) {
	return f.callback(p, q)
}

func (f *fakeCheckout) Reverify(_ context.Context, txID string) (*checkout.Settlement, error) {
	return f.reverify(txID)
}

func (f *fakeCheckout) Status(_ context.Context, txID string) (*paymentsrepo.Payment, error) {
	return f.status(txID)
}

type fakeUsers struct {
	users.Store
	byID map[int64]*users.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*users.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, users.ErrNotFound
}

type fakeMembers struct {
	members.Store
	mu      sync.Mutex
	rows    map[int64]*members.Member
	created []*members.Member
	filter  members.Status
}

func (f *fakeMembers) Create(_ context.Context, m *members.Member) (*members.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.PaymentID != nil {
		for _, c := range f.created {
			if c.PaymentID != nil && *c.PaymentID == *m.PaymentID {
				return nil, members.ErrPaymentLinked
			}
		}
	}
	m.ID = int64(len(f.created) + 1)
	m.Status = members.StatusPending
	f.created = append(f.created, m)
	return m, nil
}

func (f *fakeMembers) GetByID(_ context.Context, id int64) (*members.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.rows[id]; ok {
		return m, nil
	}
	return nil, members.ErrNotFound
}

func (f *fakeMembers) List(_ context.Context, status members.Status, _, _ int) ([]*members.Member, int, error) {
	f.filter = status
	var out []*members.Member
	for _, m := range f.rows {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	return out, len(out), nil
}

func (f *fakeMembers) Review(_ context.Context, id int64, to members.Status, reviewerID int64, note string) (*members.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return nil, members.ErrNotFound
	}
	if m.Status != members.StatusPending {
		return nil, members.ErrAlreadyReviewed
	}
	now := time.Now()
	m.Status, m.ReviewedBy, m.ReviewedAt, m.ReviewNote = to, &reviewerID, &now, &note
	return m, nil
}

type fakePayments struct {
	paymentsrepo.Store
	rows   map[int64]*paymentsrepo.Payment
	filter paymentsrepo.ListFilter
}

func (f *fakePayments) GetByID(_ context.Context, id int64) (*paymentsrepo.Payment, error) {
	if p, ok := f.rows[id]; ok {
		return p, nil
	}
	return nil, paymentsrepo.ErrNotFound
}

func (f *fakePayments) GetByTransactionID(_ context.Context, txID string) (*paymentsrepo.Payment, error) {
	for _, p := range f.rows {
		if p.TransactionID == txID {
			return p, nil
		}
	}
	return nil, paymentsrepo.ErrNotFound
}

func (f *fakePayments) List(_ context.Context, lf paymentsrepo.ListFilter) ([]*paymentsrepo.Payment, int, error) {
	f.filter = lf
	var out []*paymentsrepo.Payment
	for _, p := range f.rows {
		out = append(out, p)
	}
	return out, len(out), nil
}

type fakeLogs struct{ paymentsrepo.LogsStore }

func (fakeLogs) ListByPayment(_ context.Context, paymentID int64) ([]*paymentsrepo.PaymentLog, error) {
	return []*paymentsrepo.PaymentLog{{ID: 1, PaymentID: paymentID, LogType: paymentsrepo.LogRequest}}, nil
}

type fakePushTokens struct {
	pushtokens.Store
	saved   map[int64]string
	removed []string
}

func (f *fakePushTokens) AddOrUpdatePushToken(_ context.Context, userID int64, token string, _ json.RawMessage) error {
	f.saved[userID] = token
	return nil
}

func (f *fakePushTokens) RemoveTokensByTokenList(_ context.Context, tokens []string) error {
	f.removed = append(f.removed, tokens...)
	return nil
}

type fakeDashboard struct {
	overview *admindashboard.Overview
	err      error
}

func (f *fakeDashboard) GetOverview(context.Context) (*admindashboard.Overview, error) {
	return f.overview, f.err
}

type sentMail struct {
	template, email string
	data            any
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(templateFile, _, email string, data any) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{templateFile, email, data})
	return 1, nil
}

type testEnv struct {
	app      *application
	checkout *fakeCheckout
	users    *fakeUsers
	members  *fakeMembers
	payments *fakePayments
	tokens   *fakePushTokens
	board    *fakeDashboard
	mailer   *fakeMailer
}

const adminPassword = "correct horse"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	admin := &users.User{ID: 1, Email: "admin@sathi.org.np", Role: users.RoleAdmin, IsActive: true}
	require.NoError(t, admin.Password.Set(adminPassword))
	staff := &users.User{ID: 2, Email: "staff@sathi.org.np", Role: "staff", IsActive: true}
	require.NoError(t, staff.Password.Set(adminPassword))

	env := &testEnv{
		checkout: &fakeCheckout{},
		users:    &fakeUsers{byID: map[int64]*users.User{1: admin, 2: staff}},
		members:  &fakeMembers{rows: map[int64]*members.Member{}},
		payments: &fakePayments{rows: map[int64]*paymentsrepo.Payment{}},
		tokens:   &fakePushTokens{saved: map[int64]string{}},
		board:    &fakeDashboard{overview: &admindashboard.Overview{ByGateway: []admindashboard.GatewayTotal{}}},
		mailer:   &fakeMailer{},
	}

	cfg := &config.Config{
		Env:         "test",
		FrontendURL: "https://sathi.org.np",
		APIURL:      "https://api.sathi.org.np",
		Auth: config.AuthConfig{
			BasicUser:   "ops",
			BasicPass:   "ops-pass",
			TokenSecret: "test-secret",
			TokenExp:    time.Hour,
			TokenIss:    "sathi",
		},
		RateLimiter: config.RateLimiterConfig{RequestsPerTimeFrame: 100, TimeFrame: time.Minute},
	}

	env.app = &application{
		config: cfg,
		store: &storage.Container{
			Users:      env.users,
			Members:    env.members,
			Payments:   env.payments,
			PayLogs:    fakeLogs{},
			PushTokens: env.tokens,
			Dashboard:  env.board,
		},
		logger:        zap.NewNop().Sugar(),
		checkout:      env.checkout,
		mailer:        env.mailer,
		authenticator: auth.NewJWTAuthenticator(cfg.Auth.TokenSecret, cfg.Auth.TokenIss, cfg.Auth.TokenIss, cfg.Auth.TokenExp),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame),
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mods {
		m(req)
	}
	rr := httptest.NewRecorder()
	e.app.mount().ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) adminToken(t *testing.T, userID int64, role string) func(*http.Request) {
	t.Helper()
	token, err := e.app.authenticator.GenerateToken(userID, role)
	require.NoError(t, err)
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

// decodeData unwraps the {"data": ...} envelope.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, rr.Code, env.Status)
	return env.Message
}
