package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"sathi/internal/httpclient"

	"github.com/spf13/cast"
)

type IMEPayAdapter struct {
	MerchantCode string
	SecretKey    string
	Module       string
	SuccessURL   string
	FailureURL   string
	BaseURL      string
	client       *httpclient.Client
}

// IMEPayAPI holds the basic-auth user and module name IME Pay issues per
// merchant for its recheck API.
type IMEPayAPI struct {
	User     string
	Password string
	Module   string
}

func NewIMEPayAdapter(creds Credentials, api IMEPayAPI) *IMEPayAdapter {
	a := &IMEPayAdapter{
		MerchantCode: creds.MerchantID,
		SecretKey:    creds.SecretKey,
		Module:       api.Module,
		SuccessURL:   creds.SuccessURL,
		FailureURL:   creds.FailureURL,
		BaseURL:      "https://stg.imepay.com.np:7979",
	}
	if creds.production() {
		a.BaseURL = "https://payment.imepay.com.np:7979"
	}
	a.client = httpclient.New().
		WithBasicAuth(api.User, api.Password).
		WithHeader("Module", base64.StdEncoding.EncodeToString([]byte(api.Module)))
	return a
}

// IMEPaySignature is hex(sha256("MerchantCode|RefId|TranAmount" + secret)).
func IMEPaySignature(secret, merchantCode, refID, amount string) string {
	return saltedSHA256Hex(secret, strings.Join([]string{merchantCode, refID, amount}, "|"))
}

func (a *IMEPayAdapter) BuildPaymentForm(ctx context.Context, req FormRequest) (*FormResult, error) {
	amount := FormatAmount(req.Amount)

	fields := map[string]string{
		"MerchantCode": a.MerchantCode,
		"RefId":        req.TransactionID,
		"TranAmount":   amount,
		"Method":       "GET",
		"RespUrl":      a.SuccessURL,
		"CancelUrl":    addQuery(a.FailureURL, "txn", req.TransactionID),
		"Signature":    IMEPaySignature(a.SecretKey, a.MerchantCode, req.TransactionID, amount),
	}

	// The TokenId only exists once IME Pay redirects back, so no
	// provider ref is stored at initiation.
	return &FormResult{
		Action: strings.TrimRight(a.BaseURL, "/") + "/WebCheckout/Checkout",
		Method: "POST",
		Fields: fields,
	}, nil
}

// VerifyPayment calls Recheck. ResponseCode 0 is success, 1 is a failed
// payment, anything else is not settled yet. The TokenId comes from the
// callback when there is one and from the stored provider ref otherwise.
func (a *IMEPayAdapter) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	token := strings.TrimSpace(firstNonEmpty(req.Data["TokenId"], req.ProviderRef))
	payload := map[string]string{
		"MerchantCode": a.MerchantCode,
		"RefId":        req.TransactionID,
		"TokenId":      token,
	}

	resp, err := a.client.PostJSON(ctx, strings.TrimRight(a.BaseURL, "/")+"/api/Web/Recheck", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: imepay recheck request: %v", ErrProvider, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: imepay recheck failed: http=%d body=%s", ErrProvider, resp.StatusCode, string(resp.Body))
	}

	var res map[string]any
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return nil, fmt.Errorf("%w: imepay recheck decode: %v body=%s", ErrProvider, err, string(resp.Body))
	}
	if _, ok := res["ResponseCode"]; !ok {
		return nil, fmt.Errorf("%w: imepay recheck without ResponseCode: body=%s", ErrProvider, string(resp.Body))
	}

	code := cast.ToInt(res["ResponseCode"])
	out := &VerificationResult{
		State:       strings.TrimSpace(cast.ToString(res["ResponseDescription"])),
		ProviderRef: cast.ToString(res["TransactionId"]),
		Raw:         json.RawMessage(resp.Body),
	}
	if amt, err := ParseAmount(cast.ToString(res["TranAmount"])); err == nil {
		out.Amount = amt
	}
	if out.State == "" {
		out.State = fmt.Sprintf("CODE_%d", code)
	}

	switch code {
	case 0:
		out.Terminal = true
		switch {
		case cast.ToString(res["RefId"]) != "" && cast.ToString(res["RefId"]) != req.TransactionID:
			out.State = StateReferenceMismatch
		case !out.Amount.Equal(req.Amount):
			out.State = StateAmountMismatch
		default:
			out.Success = true
		}
	case 1:
		out.Terminal = true
	default:
		out.Terminal = false
	}

	return out, nil
}

// ParseCallback decodes the pipe separated payload IME Pay sends back:
// ResponseCode|ResponseDescription|Msisdn|TransactionId|RefId|TranAmount|TokenId.
// Cancel redirects only carry our txn parameter.
func (a *IMEPayAdapter) ParseCallback(q url.Values) (*Callback, error) {
	data := q.Get("data")
	if data == "" {
		txn := strings.TrimSpace(firstNonEmpty(q.Get("RefId"), q.Get("txn")))
		if txn == "" {
			return nil, fmt.Errorf("%w: imepay callback missing data", ErrInvalidCallback)
		}
		return &Callback{TransactionID: txn, Status: "CANCELLED", Data: map[string]string{"txn": txn}}, nil
	}

	raw, err := decodeBase64Param(data)
	if err != nil {
		return nil, fmt.Errorf("%w: imepay data is not base64: %v", ErrInvalidCallback, err)
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) < 6 {
		return nil, fmt.Errorf("%w: imepay data has %d fields", ErrInvalidCallback, len(parts))
	}

	names := []string{"ResponseCode", "ResponseDescription", "Msisdn", "TransactionId", "RefId", "TranAmount", "TokenId"}
	fields := make(map[string]string, len(names))
	for i, n := range names {
		if i < len(parts) {
			fields[n] = strings.TrimSpace(parts[i])
		}
	}

	cb := &Callback{
		TransactionID: fields["RefId"],
		ProviderRef:   fields["TokenId"],
		Status:        fields["ResponseCode"],
		Data:          fields,
	}
	if cb.TransactionID == "" {
		return nil, fmt.Errorf("%w: imepay callback missing RefId", ErrInvalidCallback)
	}
	if amt, err := ParseAmount(fields["TranAmount"]); err == nil {
		cb.ClaimedAmount = &amt
	}

	return cb, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
