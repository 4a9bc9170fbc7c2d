package main

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"sathi/internal/checkout"
	"sathi/internal/domain/admindashboard"
	"sathi/internal/domain/members"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/mailer"
	"sathi/internal/payments"
	"sathi/internal/ratelimiter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLogin(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"ok", `{"email":"Admin@Sathi.org.np","password":"correct horse"}`, http.StatusOK},
		{"wrong password", `{"email":"admin@sathi.org.np","password":"wrong horse"}`, http.StatusUnauthorized},
		{"unknown email", `{"email":"nobody@sathi.org.np","password":"correct horse"}`, http.StatusUnauthorized},
		{"not an admin", `{"email":"staff@sathi.org.np","password":"correct horse"}`, http.StatusForbidden},
		{"invalid payload", `{"email":"nope","password":""}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.do(t, http.MethodPost, "/v1/admin/login", tc.body)
			assert.Equal(t, tc.code, rr.Code, rr.Body.String())
		})
	}
}

func TestAdminSessionCookieRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/v1/admin/login", `{"email":"admin@sathi.org.np","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/v1/admin", cookie.Path)
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)

	var session AdminSession
	decodeData(t, rr, &session)
	assert.Equal(t, cookie.Value, session.Token)
	assert.Equal(t, int64(1), session.User.ID)

	rr = env.do(t, http.MethodGet, "/v1/admin/me", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "admin@sathi.org.np")
	assert.NotContains(t, rr.Body.String(), "password")

	rr = env.do(t, http.MethodPost, "/v1/admin/logout", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusNoContent, rr.Code)
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, sessionCookie, cleared[0].Name)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/v1/admin/payments", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/v1/admin/payments", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// the stored role wins over whatever the token claims
	rr = env.do(t, http.MethodGet, "/v1/admin/payments", "", env.adminToken(t, 2, "admin"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	env.users.byID[1].IsActive = false
	rr = env.do(t, http.MethodGet, "/v1/admin/payments", "", env.adminToken(t, 1, "admin"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminListPayments(t *testing.T) {
	env := newTestEnv(t)
	env.payments.rows[7] = samplePayment()
	auth := env.adminToken(t, 1, "admin")

	rr := env.do(t, http.MethodGet, "/v1/admin/payments?status=Failed&provider=khalti&since=2025-03-01&page=2&limit=10", "", auth)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	f := env.payments.filter
	assert.Equal(t, paymentsrepo.StatusFailed, f.Status)
	assert.Equal(t, "khalti", f.Provider)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 10, f.Offset)
	require.NotNil(t, f.Since)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), f.Since.UTC())

	var list AdminPaymentList
	decodeData(t, rr, &list)
	require.Len(t, list.Payments, 1)
	assert.Equal(t, "sita@example.com", list.Payments[0].CustomerEmail)
	assert.Equal(t, 1, list.Pagination.Total)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/admin/payments?status=refunded", "", auth).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/admin/payments?provider=paypal", "", auth).Code)
}

func TestAdminGetPayment(t *testing.T) {
	env := newTestEnv(t)
	env.payments.rows[7] = samplePayment()
	auth := env.adminToken(t, 1, "admin")

	rr := env.do(t, http.MethodGet, "/v1/admin/payments/7", "", auth)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail AdminPaymentDetail
	decodeData(t, rr, &detail)
	assert.Equal(t, "tx-7", detail.Payment.TransactionID)
	require.Len(t, detail.Logs, 1)
	assert.Equal(t, paymentsrepo.LogRequest, detail.Logs[0].LogType)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/admin/payments/99", "", auth).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/admin/payments/abc", "", auth).Code)
}

func TestAdminReviewMember(t *testing.T) {
	env := newTestEnv(t)
	env.members.rows[3] = &members.Member{ID: 3, FullName: "Ram Thapa", Email: "ram@example.com", Membership: "life", Status: members.StatusPending}
	auth := env.adminToken(t, 1, "admin")

	rr := env.do(t, http.MethodPost, "/v1/admin/members/3/approve", `{"note":"welcome"}`, auth)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var m members.Member
	decodeData(t, rr, &m)
	assert.Equal(t, members.StatusApproved, m.Status)
	require.NotNil(t, m.ReviewedBy)
	assert.Equal(t, int64(1), *m.ReviewedBy)

	env.app.wg.Wait()
	require.Len(t, env.mailer.sent, 1)
	sent := env.mailer.sent[0]
	assert.Equal(t, mailer.MembershipDecisionTemplate, sent.template)
	assert.Equal(t, "ram@example.com", sent.email)
	_, body, err := mailer.Render(sent.template, sent.data)
	require.NoError(t, err)
	assert.Contains(t, body, "approved")
	assert.Contains(t, body, "welcome")

	rr = env.do(t, http.MethodPost, "/v1/admin/members/3/reject", "", auth)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPost, "/v1/admin/members/42/reject", "", auth)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminListMembersFiltersStatus(t *testing.T) {
	env := newTestEnv(t)
	env.members.rows[1] = &members.Member{ID: 1, Status: members.StatusPending}
	env.members.rows[2] = &members.Member{ID: 2, Status: members.StatusApproved}
	auth := env.adminToken(t, 1, "admin")

	rr := env.do(t, http.MethodGet, "/v1/admin/members?status=pending", "", auth)
	require.Equal(t, http.StatusOK, rr.Code)
	var list AdminMemberList
	decodeData(t, rr, &list)
	require.Len(t, list.Members, 1)
	assert.Equal(t, int64(1), list.Members[0].ID)
	assert.Equal(t, members.StatusPending, env.members.filter)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/admin/members?status=banned", "", auth).Code)
}

func TestCreateMember(t *testing.T) {
	env := newTestEnv(t)
	completed := samplePayment()
	completed.Status, completed.Purpose, completed.FailureReason = paymentsrepo.StatusCompleted, paymentsrepo.PurposeMembership, nil
	env.payments.rows[7] = completed

	rr := env.do(t, http.MethodPost, "/v1/members",
		`{"fullName":"Gita Rai","email":"Gita@Example.com","phone":"9812345678","membership":"volunteer","transactionId":"tx-7"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, env.members.created, 1)
	m := env.members.created[0]
	assert.Equal(t, "gita@example.com", m.Email)
	require.NotNil(t, m.PaymentID)
	assert.Equal(t, int64(7), *m.PaymentID)

	// a second application cannot reuse the same payment
	rr = env.do(t, http.MethodPost, "/v1/members",
		`{"fullName":"Hari Rai","email":"hari@example.com","phone":"9812345679","transactionId":"tx-7"}`)
	assert.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	assert.Len(t, env.members.created, 1)

	tests := []struct {
		name string
		body string
	}{
		{"bad phone", `{"fullName":"Gita Rai","email":"gita@example.com","phone":"12345"}`},
		{"bad membership", `{"fullName":"Gita Rai","email":"gita@example.com","phone":"9812345678","membership":"gold"}`},
		{"unknown payment", `{"fullName":"Gita Rai","email":"gita@example.com","phone":"9812345678","transactionId":"nope"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/v1/members", tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	completed.Purpose = paymentsrepo.PurposeDonation
	rr = env.do(t, http.MethodPost, "/v1/members",
		`{"fullName":"Gita Rai","email":"gita@example.com","phone":"9812345678","transactionId":"tx-7"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSavePushToken(t *testing.T) {
	env := newTestEnv(t)
	auth := env.adminToken(t, 1, "admin")

	rr := env.do(t, http.MethodPost, "/v1/admin/push-tokens", `{"token":"ExponentPushToken[abc123]"}`, auth)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "ExponentPushToken[abc123]", env.tokens.saved[1])

	rr = env.do(t, http.MethodPost, "/v1/admin/push-tokens", `{"token":"fcm:xyz"}`, auth)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthRequiresBasicAuth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/v1/health", "").Code)

	basic := func(user, pass string) func(*http.Request) {
		return func(r *http.Request) {
			r.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
		}
	}
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/v1/health", "", basic("ops", "nope")).Code)

	rr := env.do(t, http.MethodGet, "/v1/health", "", basic("ops", "ops-pass"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestRateLimiterSkipsGatewayReturns(t *testing.T) {
	env := newTestEnv(t)
	env.app.config.RateLimiter.Enabled = true
	env.app.rateLimiter = ratelimiter.NewFixedWindowLimiter(2, time.Minute)
	env.checkout.status = func(string) (*paymentsrepo.Payment, error) { return samplePayment(), nil }
	env.checkout.callback = func(payments.Provider, url.Values) (*checkout.Settlement, error) {
		return &checkout.Settlement{Payment: samplePayment(), Outcome: checkout.OutcomeCompleted}, nil
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/payments/tx-7", "").Code)
	}
	rr := env.do(t, http.MethodGet, "/v1/payments/tx-7", "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.True(t, strings.HasPrefix(decodeError(t, rr), "rate limit exceeded"))

	rr = env.do(t, http.MethodGet, "/v1/payments/esewa/return?data=x", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.board.overview = &admindashboard.Overview{
		TotalPayments:     4,
		CompletedPayments: 3,
		DonationsPaisa:    125000,
		PendingMembers:    2,
		ByGateway:         []admindashboard.GatewayTotal{{Provider: "esewa", Count: 3, AmountPaisa: 125000}},
	}

	rr := env.do(t, http.MethodGet, "/v1/admin/dashboard", "", env.adminToken(t, 1, "admin"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got admindashboard.Overview
	decodeData(t, rr, &got)
	assert.Equal(t, *env.board.overview, got)

	env.board.err = errors.New("db down")
	rr = env.do(t, http.MethodGet, "/v1/admin/dashboard", "", env.adminToken(t, 1, "admin"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = env.do(t, http.MethodGet, "/v1/admin/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBulkRemovePushTokens(t *testing.T) {
	env := newTestEnv(t)
	auth := env.adminToken(t, 1, "admin")

	rr := env.do(t, http.MethodPost, "/v1/admin/push-tokens/bulk-remove", `{"tokens":["ExponentPushToken[a]","ExponentPushToken[b]"]}`, auth)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"ExponentPushToken[a]", "ExponentPushToken[b]"}, env.tokens.removed)

	rr = env.do(t, http.MethodPost, "/v1/admin/push-tokens/bulk-remove", `{"tokens":[]}`, auth)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminGetMember(t *testing.T) {
	env := newTestEnv(t)
	auth := env.adminToken(t, 1, "admin")

	paid := samplePayment()
	paid.Status, paid.Purpose = paymentsrepo.StatusCompleted, paymentsrepo.PurposeMembership
	env.payments.rows[paid.ID] = paid
	env.members.rows[3] = &members.Member{ID: 3, FullName: "Ram", Status: members.StatusPending, PaymentID: &paid.ID}
	env.members.rows[4] = &members.Member{ID: 4, FullName: "Hari", Status: members.StatusPending}

	rr := env.do(t, http.MethodGet, "/v1/admin/members/3", "", auth)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var detail struct {
		Member  members.Member        `json:"member"`
		Payment *paymentsrepo.Payment `json:"payment"`
	}
	decodeData(t, rr, &detail)
	assert.Equal(t, "Ram", detail.Member.FullName)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, "tx-7", detail.Payment.TransactionID)

	rr = env.do(t, http.MethodGet, "/v1/admin/members/4", "", auth)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `"payment"`)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/admin/members/99", "", auth).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/admin/members/abc", "", auth).Code)
}
