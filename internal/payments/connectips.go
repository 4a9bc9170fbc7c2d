package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sathi/internal/httpclient"

	"github.com/spf13/cast"
)

var connectIPSSignedFields = []string{
	"MERCHANTID", "APPID", "APPNAME", "TXNID", "TXNDATE", "TXNCRNCY",
	"TXNAMT", "REFERENCEID", "REMARKS", "PARTICULARS", "TOKEN",
}

// ConnectIPSApp identifies the creditor app registered with NCHL.
type ConnectIPSApp struct {
	AppID    string
	AppName  string
	Password string
}

type ConnectIPSAdapter struct {
	MerchantID string
	SecretKey  string
	App        ConnectIPSApp
	SuccessURL string
	FailureURL string
	BaseURL    string
	client     *httpclient.Client
	now        func() time.Time
}

func NewConnectIPSAdapter(creds Credentials, app ConnectIPSApp) *ConnectIPSAdapter {
	c := &ConnectIPSAdapter{
		MerchantID: creds.MerchantID,
		SecretKey:  creds.SecretKey,
		App:        app,
		SuccessURL: creds.SuccessURL,
		FailureURL: creds.FailureURL,
		BaseURL:    "https://uat.connectips.com",
		now:        time.Now,
	}
	if creds.production() {
		c.BaseURL = "https://login.connectips.com"
	}
	c.client = httpclient.New().WithBasicAuth(app.AppID, app.Password)
	return c
}

// ConnectIPSSignature signs the fields in the fixed order NCHL expects.
// The secret here is the creditor key issued with the app.
func ConnectIPSSignature(secret string, fields map[string]string) string {
	return hmacBase64(secret, joinSigned(connectIPSSignedFields, fields))
}

func (c *ConnectIPSAdapter) BuildPaymentForm(ctx context.Context, req FormRequest) (*FormResult, error) {
	remarks := truncate(req.ProductName, 50)
	fields := map[string]string{
		"MERCHANTID":  c.MerchantID,
		"APPID":       c.App.AppID,
		"APPNAME":     c.App.AppName,
		"TXNID":       req.TransactionID,
		"TXNDATE":     c.now().Format("02-01-2006"),
		"TXNCRNCY":    DefaultCurrency,
		"TXNAMT":      strconv.FormatInt(ToPaisa(req.Amount), 10),
		"REFERENCEID": req.TransactionID,
		"REMARKS":     remarks,
		"PARTICULARS": remarks,
		"TOKEN":       "TOKEN",
	}
	fields["TOKEN"] = ConnectIPSSignature(c.SecretKey, fields)

	return &FormResult{
		Action:      strings.TrimRight(c.BaseURL, "/") + "/connectipswebgw/loginpage",
		Method:      "POST",
		Fields:      fields,
		ProviderRef: req.TransactionID,
	}, nil
}

func (c *ConnectIPSAdapter) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	paisa := strconv.FormatInt(ToPaisa(req.Amount), 10)
	msg := map[string]string{
		"MERCHANTID":  c.MerchantID,
		"APPID":       c.App.AppID,
		"REFERENCEID": req.TransactionID,
		"TXNAMT":      paisa,
	}
	token := hmacBase64(c.SecretKey, joinSigned([]string{"MERCHANTID", "APPID", "REFERENCEID", "TXNAMT"}, msg))

	payload := map[string]any{
		"merchantId":  cast.ToInt64(c.MerchantID),
		"appId":       c.App.AppID,
		"referenceId": req.TransactionID,
		"txnAmt":      paisa,
		"token":       token,
	}

	resp, err := c.client.PostJSON(ctx, strings.TrimRight(c.BaseURL, "/")+"/connectipswebws/api/creditor/validatetxn", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: connectips validate request: %v", ErrProvider, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: connectips validate failed: http=%d body=%s", ErrProvider, resp.StatusCode, string(resp.Body))
	}

	var res map[string]any
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return nil, fmt.Errorf("%w: connectips validate decode: %v body=%s", ErrProvider, err, string(resp.Body))
	}

	state := strings.ToUpper(strings.TrimSpace(cast.ToString(res["status"])))
	if state == "" {
		return nil, fmt.Errorf("%w: connectips validate without status: body=%s", ErrProvider, string(resp.Body))
	}

	out := &VerificationResult{
		State:       state,
		ProviderRef: req.TransactionID,
		Raw:         json.RawMessage(resp.Body),
	}
	if v, ok := res["txnAmt"]; ok {
		out.Amount = FromPaisa(cast.ToInt64(v))
	}

	switch state {
	case "SUCCESS":
		out.Terminal = true
		switch {
		case cast.ToString(res["referenceId"]) != "" && cast.ToString(res["referenceId"]) != req.TransactionID:
			out.State = StateReferenceMismatch
		case res["txnAmt"] != nil && !out.Amount.Equal(req.Amount):
			out.State = StateAmountMismatch
		default:
			out.Success = true
			out.Amount = req.Amount
		}
	case "ERROR":
		// NCHL returns ERROR while the debit is still being processed.
		out.Terminal = false
	default:
		out.Terminal = true
	}

	return out, nil
}

// ParseCallback reads TXNID from the success/failure redirect. ConnectIPS
// sends nothing else worth trusting; the outcome comes from validatetxn.
func (c *ConnectIPSAdapter) ParseCallback(q url.Values) (*Callback, error) {
	txn := strings.TrimSpace(firstNonEmpty(q.Get("TXNID"), q.Get("txn")))
	if txn == "" {
		return nil, fmt.Errorf("%w: connectips callback missing TXNID", ErrInvalidCallback)
	}
	data := make(map[string]string, len(q))
	for key := range q {
		data[key] = q.Get(key)
	}
	return &Callback{TransactionID: txn, Data: data}, nil
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
