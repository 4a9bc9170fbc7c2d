package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"sathi/internal/httpclient"

	"github.com/spf13/cast"
)

const esewaSignedFields = "total_amount,transaction_uuid,product_code"

type EsewaAdapter struct {
	MerchantCode string
	SecretKey    string
	SuccessURL   string
	FailureURL   string
	FormURL      string
	StatusURL    string
	client       *httpclient.Client
}

func NewEsewaAdapter(creds Credentials) *EsewaAdapter {
	e := &EsewaAdapter{
		MerchantCode: creds.MerchantID,
		SecretKey:    creds.SecretKey,
		SuccessURL:   creds.SuccessURL,
		FailureURL:   creds.FailureURL,
		FormURL:      "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
		StatusURL:    "https://rc.esewa.com.np/api/epay/transaction/status/",
		client:       httpclient.New(),
	}
	if creds.production() {
		e.FormURL = "https://epay.esewa.com.np/api/epay/main/v2/form"
		e.StatusURL = "https://epay.esewa.com.np/api/epay/transaction/status/"
	}
	return e
}

// EsewaSignature signs total_amount, transaction_uuid and product_code as
// per the ePay v2 docs. Callbacks are verified with the same function.
func EsewaSignature(secret, totalAmount, transactionUUID, productCode string) string {
	return hmacBase64(secret, joinSigned(strings.Split(esewaSignedFields, ","), map[string]string{
		"total_amount":     totalAmount,
		"transaction_uuid": transactionUUID,
		"product_code":     productCode,
	}))
}

func (e *EsewaAdapter) BuildPaymentForm(ctx context.Context, req FormRequest) (*FormResult, error) {
	total := FormatAmount(req.Amount)

	fields := map[string]string{
		"amount":                  total,
		"tax_amount":              "0",
		"total_amount":            total,
		"transaction_uuid":        req.TransactionID,
		"product_code":            e.MerchantCode,
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"success_url":             e.SuccessURL,
		"failure_url":             addQuery(e.FailureURL, "txn", req.TransactionID),
		"signed_field_names":      esewaSignedFields,
		"signature":               EsewaSignature(e.SecretKey, total, req.TransactionID, e.MerchantCode),
	}

	return &FormResult{
		Action:      e.FormURL,
		Method:      "POST",
		Fields:      fields,
		ProviderRef: req.TransactionID,
	}, nil
}

func (e *EsewaAdapter) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	total := FormatAmount(req.Amount)

	resp, err := e.client.Get(ctx, e.StatusURL, map[string]string{
		"product_code":     e.MerchantCode,
		"total_amount":     total,
		"transaction_uuid": req.TransactionID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: esewa status request: %v", ErrProvider, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: esewa status http=%d body=%s", ErrProvider, resp.StatusCode, string(resp.Body))
	}

	var res struct {
		ProductCode     string  `json:"product_code"`
		TransactionUUID string  `json:"transaction_uuid"`
		TotalAmount     any     `json:"total_amount"`
		Status          string  `json:"status"`
		RefID           *string `json:"ref_id"`
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: esewa status decode: http=%d err=%v body=%s", ErrProvider, resp.StatusCode, err, string(resp.Body))
	}

	state := strings.ToUpper(strings.TrimSpace(res.Status))
	if state == "" {
		return nil, fmt.Errorf("%w: esewa status missing: http=%d body=%s", ErrProvider, resp.StatusCode, string(resp.Body))
	}

	out := &VerificationResult{
		State: state,
		Raw:   json.RawMessage(resp.Body),
	}
	if res.RefID != nil {
		out.ProviderRef = *res.RefID
	}
	if res.TotalAmount != nil {
		if amt, err := ParseAmount(cast.ToString(res.TotalAmount)); err == nil {
			out.Amount = amt
		}
	}

	switch state {
	case "COMPLETE":
		out.Terminal = true
		switch {
		case res.TransactionUUID != "" && res.TransactionUUID != req.TransactionID:
			out.State = StateReferenceMismatch
		case !out.Amount.Equal(req.Amount):
			out.State = StateAmountMismatch
		default:
			out.Success = true
		}
	case "PENDING", "AMBIGUOUS":
		out.Terminal = false
	default:
		// NOT_FOUND, CANCELED, FULL_REFUND, PARTIAL_REFUND
		out.Terminal = true
	}

	return out, nil
}

// ParseCallback decodes the base64 JSON eSewa appends as ?data= and checks
// its signature over signed_field_names. Failure redirects carry no data,
// only our own txn parameter.
func (e *EsewaAdapter) ParseCallback(q url.Values) (*Callback, error) {
	data := q.Get("data")
	if data == "" {
		txn := strings.TrimSpace(q.Get("txn"))
		if txn == "" {
			return nil, fmt.Errorf("%w: esewa callback missing data", ErrInvalidCallback)
		}
		return &Callback{TransactionID: txn, Status: "FAILURE_REDIRECT", Data: map[string]string{"txn": txn}}, nil
	}

	raw, err := decodeBase64Param(data)
	if err != nil {
		return nil, fmt.Errorf("%w: esewa data is not base64: %v", ErrInvalidCallback, err)
	}

	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: esewa data is not json: %v", ErrInvalidCallback, err)
	}
	fields := cast.ToStringMapString(payload)

	cb := &Callback{
		TransactionID: strings.TrimSpace(fields["transaction_uuid"]),
		Status:        strings.ToUpper(strings.TrimSpace(fields["status"])),
		Data:          fields,
	}
	if cb.TransactionID == "" {
		return nil, fmt.Errorf("%w: esewa callback missing transaction_uuid", ErrInvalidCallback)
	}
	if amt, err := ParseAmount(fields["total_amount"]); err == nil {
		cb.ClaimedAmount = &amt
	}

	names := fields["signed_field_names"]
	sig := fields["signature"]
	switch {
	case names == "" || sig == "":
		cb.SignatureInvalid = true
	case fields["product_code"] != e.MerchantCode:
		cb.SignatureInvalid = true
	default:
		want := hmacBase64(e.SecretKey, joinSigned(strings.Split(names, ","), fields))
		cb.SignatureInvalid = !signaturesEqual(want, sig)
	}

	return cb, nil
}
