package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const esewaTestSecret = "8gBm/:&EnhH.1/q"

func newTestEsewa() *EsewaAdapter {
	return NewEsewaAdapter(Credentials{
		MerchantID: "EPAYTEST",
		SecretKey:  esewaTestSecret,
		SuccessURL: "https://api.ngo.example/payments/esewa/return",
		FailureURL: "https://api.ngo.example/payments/esewa/return",
	})
}

func TestEsewaSignatureIsDeterministic(t *testing.T) {
	got := EsewaSignature(esewaTestSecret, "100", "11-201-13", "EPAYTEST")
	assert.Equal(t, "5DZywcrTKD0gia/rsSMcrRHmJl+4Tbol6S+lWgdJ94E=", got)
	assert.Equal(t, got, EsewaSignature(esewaTestSecret, "100", "11-201-13", "EPAYTEST"))
	assert.NotEqual(t, got, EsewaSignature(esewaTestSecret, "101", "11-201-13", "EPAYTEST"))
}

func TestEsewaBuildPaymentForm(t *testing.T) {
	e := newTestEsewa()
	form, err := e.BuildPaymentForm(context.Background(), FormRequest{
		TransactionID: "txn-1",
		Amount:        decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", form.Method)
	assert.Equal(t, "https://rc-epay.esewa.com.np/api/epay/main/v2/form", form.Action)
	assert.Equal(t, "500.00", form.Fields["total_amount"])
	assert.Equal(t, esewaSignedFields, form.Fields["signed_field_names"])
	assert.Equal(t, "QmOdXDLTfefTOvgd3wsVSXNlOqkc6wSFUV5BMepBNRA=", form.Fields["signature"])
	assert.Contains(t, form.Fields["failure_url"], "txn=txn-1")
}

func TestEsewaProductionHosts(t *testing.T) {
	e := NewEsewaAdapter(Credentials{MerchantID: "NGO", SecretKey: "s", Environment: Production})
	assert.Equal(t, "https://epay.esewa.com.np/api/epay/main/v2/form", e.FormURL)
	assert.Equal(t, "https://epay.esewa.com.np/api/epay/transaction/status/", e.StatusURL)
}

func TestEsewaVerifyPayment(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		success  bool
		terminal bool
		state    string
	}{
		{"complete", `{"product_code":"EPAYTEST","transaction_uuid":"txn-1","total_amount":500.0,"status":"COMPLETE","ref_id":"0001TS9"}`, true, true, "COMPLETE"},
		{"pending", `{"product_code":"EPAYTEST","transaction_uuid":"txn-1","total_amount":500.0,"status":"PENDING","ref_id":null}`, false, false, "PENDING"},
		{"not found", `{"product_code":"EPAYTEST","transaction_uuid":"txn-1","total_amount":500.0,"status":"NOT_FOUND","ref_id":null}`, false, true, "NOT_FOUND"},
		{"amount mismatch", `{"product_code":"EPAYTEST","transaction_uuid":"txn-1","total_amount":5.0,"status":"COMPLETE","ref_id":"0001TS9"}`, false, true, StateAmountMismatch},
		{"uuid mismatch", `{"product_code":"EPAYTEST","transaction_uuid":"other","total_amount":500.0,"status":"COMPLETE","ref_id":"0001TS9"}`, false, true, StateReferenceMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery url.Values
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query()
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			e := newTestEsewa()
			e.StatusURL = srv.URL

			res, err := e.VerifyPayment(context.Background(), VerifyRequest{
				TransactionID: "txn-1",
				Amount:        decimal.NewFromInt(500),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.terminal, res.Terminal)
			assert.Equal(t, tt.state, res.State)
			assert.Equal(t, "500.00", gotQuery.Get("total_amount"))
			assert.Equal(t, "txn-1", gotQuery.Get("transaction_uuid"))
		})
	}
}

func TestEsewaVerifyPaymentProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	e := newTestEsewa()
	e.StatusURL = srv.URL

	_, err := e.VerifyPayment(context.Background(), VerifyRequest{TransactionID: "txn-1", Amount: decimal.NewFromInt(500)})
	assert.ErrorIs(t, err, ErrProvider)
}

func esewaCallbackData(t *testing.T, fields map[string]string) string {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(b)
}

func signedEsewaFields(secret string) map[string]string {
	fields := map[string]string{
		"transaction_code":   "000AWEO",
		"status":             "COMPLETE",
		"total_amount":       "500.0",
		"transaction_uuid":   "txn-1",
		"product_code":       "EPAYTEST",
		"signed_field_names": "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names",
	}
	fields["signature"] = hmacBase64(secret, joinSigned(strings.Split(fields["signed_field_names"], ","), fields))
	return fields
}

func TestEsewaParseCallbackValidSignature(t *testing.T) {
	e := newTestEsewa()
	q := url.Values{"data": {esewaCallbackData(t, signedEsewaFields(esewaTestSecret))}}

	cb, err := e.ParseCallback(q)
	require.NoError(t, err)
	assert.False(t, cb.SignatureInvalid)
	assert.Equal(t, "txn-1", cb.TransactionID)
	assert.Equal(t, "000AWEO", cb.Data["transaction_code"])
	assert.Equal(t, "COMPLETE", cb.Status)
	require.NotNil(t, cb.ClaimedAmount)
	assert.True(t, cb.ClaimedAmount.Equal(decimal.NewFromInt(500)))
}

func TestEsewaParseCallbackTampered(t *testing.T) {
	e := newTestEsewa()

	fields := signedEsewaFields(esewaTestSecret)
	fields["total_amount"] = "5.0"
	cb, err := e.ParseCallback(url.Values{"data": {esewaCallbackData(t, fields)}})
	require.NoError(t, err)
	assert.True(t, cb.SignatureInvalid)

	forged := signedEsewaFields("attacker-secret")
	cb, err = e.ParseCallback(url.Values{"data": {esewaCallbackData(t, forged)}})
	require.NoError(t, err)
	assert.True(t, cb.SignatureInvalid)
}

func TestEsewaParseCallbackFailureRedirect(t *testing.T) {
	e := newTestEsewa()

	cb, err := e.ParseCallback(url.Values{"txn": {"txn-9"}})
	require.NoError(t, err)
	assert.Equal(t, "txn-9", cb.TransactionID)
	assert.Nil(t, cb.ClaimedAmount)

	_, err = e.ParseCallback(url.Values{})
	assert.ErrorIs(t, err, ErrInvalidCallback)

	_, err = e.ParseCallback(url.Values{"data": {"%%%"}})
	assert.ErrorIs(t, err, ErrInvalidCallback)
}
