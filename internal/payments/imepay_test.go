package payments

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIMEPay(baseURL string) *IMEPayAdapter {
	a := NewIMEPayAdapter(Credentials{
		MerchantID: "MERCH",
		SecretKey:  "secret",
		SuccessURL: "https://api.ngo.example/payments/imepay/return",
		FailureURL: "https://api.ngo.example/payments/imepay/return",
	}, IMEPayAPI{User: "apiuser", Password: "apipass", Module: "NGO"})
	a.BaseURL = baseURL
	return a
}

func TestIMEPaySignature(t *testing.T) {
	assert.Equal(t,
		"5bb267840111affbd4126103da5cbcbf4576df7339ebcc9320f0715075634d92",
		IMEPaySignature("secret", "MERCH", "txn-1", "500.00"))

	// the secret is appended to the message, not prepended
	sum := sha256.Sum256([]byte("MERCH|txn-1|500.00" + "secret"))
	assert.Equal(t, hex.EncodeToString(sum[:]), IMEPaySignature("secret", "MERCH", "txn-1", "500.00"))
	prefixed := sha256.Sum256([]byte("secret" + "MERCH|txn-1|500.00"))
	assert.NotEqual(t, hex.EncodeToString(prefixed[:]), IMEPaySignature("secret", "MERCH", "txn-1", "500.00"))
}

func TestIMEPayBuildPaymentForm(t *testing.T) {
	a := newTestIMEPay("https://stg.imepay.com.np:7979")
	form, err := a.BuildPaymentForm(context.Background(), FormRequest{TransactionID: "txn-1", Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)

	assert.Equal(t, "https://stg.imepay.com.np:7979/WebCheckout/Checkout", form.Action)
	assert.Equal(t, "500.00", form.Fields["TranAmount"])
	assert.Equal(t, "txn-1", form.Fields["RefId"])
	assert.Equal(t, IMEPaySignature("secret", "MERCH", "txn-1", "500.00"), form.Fields["Signature"])
	assert.Contains(t, form.Fields["CancelUrl"], "txn=txn-1")
	assert.Empty(t, form.ProviderRef)
}

func TestIMEPayVerifyPayment(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		success  bool
		terminal bool
	}{
		{"success", `{"ResponseCode":0,"ResponseDescription":"Success","RefId":"txn-1","TranAmount":"500.00","TransactionId":"7000001"}`, true, true},
		{"failed", `{"ResponseCode":1,"ResponseDescription":"Failed","RefId":"txn-1","TranAmount":"500.00","TransactionId":"7000001"}`, false, true},
		{"in progress", `{"ResponseCode":2,"ResponseDescription":"Pending","RefId":"txn-1","TranAmount":"500.00"}`, false, false},
		{"amount mismatch", `{"ResponseCode":0,"ResponseDescription":"Success","RefId":"txn-1","TranAmount":"50.00","TransactionId":"7000001"}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "apiuser", user)
				assert.Equal(t, "apipass", pass)
				assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("NGO")), r.Header.Get("Module"))
				assert.Equal(t, "/api/Web/Recheck", r.URL.Path)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := newTestIMEPay(srv.URL).VerifyPayment(context.Background(), VerifyRequest{
				TransactionID: "txn-1",
				Amount:        decimal.NewFromInt(500),
				Data:          map[string]string{"TokenId": "tok"},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.terminal, res.Terminal)
			assert.Equal(t, "tok", got["TokenId"])
			assert.Equal(t, "MERCH", got["MerchantCode"])
		})
	}
}

func TestIMEPayVerifyPaymentFallsBackToStoredToken(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ResponseCode":2,"ResponseDescription":"Pending","RefId":"txn-1"}`))
	}))
	defer srv.Close()

	res, err := newTestIMEPay(srv.URL).VerifyPayment(context.Background(), VerifyRequest{
		TransactionID: "txn-1",
		ProviderRef:   "stored-tok",
		Amount:        decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.False(t, res.Terminal)
	assert.Equal(t, "stored-tok", got["TokenId"])
	assert.Equal(t, "txn-1", got["RefId"])
}

func TestIMEPayParseCallback(t *testing.T) {
	a := newTestIMEPay("")
	data := base64.StdEncoding.EncodeToString([]byte("0|Success|9800000000|7000001|txn-1|500.00|tok"))

	cb, err := a.ParseCallback(url.Values{"data": {data}})
	require.NoError(t, err)
	assert.Equal(t, "txn-1", cb.TransactionID)
	assert.Equal(t, "7000001", cb.Data["TransactionId"])
	assert.Equal(t, "0", cb.Status)
	assert.Equal(t, "tok", cb.Data["TokenId"])
	assert.Equal(t, "tok", cb.ProviderRef)
	require.NotNil(t, cb.ClaimedAmount)
	assert.True(t, cb.ClaimedAmount.Equal(decimal.NewFromInt(500)))

	cb, err = a.ParseCallback(url.Values{"txn": {"txn-2"}})
	require.NoError(t, err)
	assert.Equal(t, "txn-2", cb.TransactionID)

	_, err = a.ParseCallback(url.Values{"data": {base64.StdEncoding.EncodeToString([]byte("0|x"))}})
	assert.ErrorIs(t, err, ErrInvalidCallback)
}
