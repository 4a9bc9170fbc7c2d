package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sathi/internal/httpclient"
)

type KhaltiAdapter struct {
	SecretKey  string
	ReturnURL  string
	WebsiteURL string
	BaseURL    string
	client     *httpclient.Client
}

func NewKhaltiAdapter(creds Credentials, websiteURL string) *KhaltiAdapter {
	k := &KhaltiAdapter{
		SecretKey:  creds.SecretKey,
		ReturnURL:  creds.SuccessURL,
		WebsiteURL: websiteURL,
		BaseURL:    "https://dev.khalti.com/api/v2",
	}
	if creds.production() {
		k.BaseURL = "https://khalti.com/api/v2"
	}
	k.client = httpclient.New().WithHeader("Authorization", "Key "+k.SecretKey)
	return k
}

func (k *KhaltiAdapter) initiateURL() string {
	return strings.TrimRight(k.BaseURL, "/") + "/epayment/initiate/"
}

func (k *KhaltiAdapter) lookupURL() string {
	return strings.TrimRight(k.BaseURL, "/") + "/epayment/lookup/"
}

// BuildPaymentForm registers the attempt with Khalti. Khalti hosts its own
// checkout, so the result is a redirect URL rather than a form.
func (k *KhaltiAdapter) BuildPaymentForm(ctx context.Context, req FormRequest) (*FormResult, error) {
	payload := map[string]any{
		"return_url":          k.ReturnURL,
		"website_url":         k.WebsiteURL,
		"amount":              ToPaisa(req.Amount),
		"purchase_order_id":   req.TransactionID,
		"purchase_order_name": req.ProductName,
		"customer_info": map[string]string{
			"name":  req.Customer.Name,
			"email": req.Customer.Email,
			"phone": req.Customer.Phone,
		},
	}

	resp, err := k.client.PostJSON(ctx, k.initiateURL(), payload)
	if err != nil {
		return nil, fmt.Errorf("%w: khalti initiate request: %v", ErrProvider, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: khalti initiate failed: http=%d body=%s", ErrProvider, resp.StatusCode, string(resp.Body))
	}

	var res struct {
		Pidx       string `json:"pidx"`
		PaymentURL string `json:"payment_url"`
		ExpiresAt  string `json:"expires_at"`
	}
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return nil, fmt.Errorf("%w: khalti initiate decode: %v body=%s", ErrProvider, err, string(resp.Body))
	}
	if res.Pidx == "" || res.PaymentURL == "" {
		return nil, fmt.Errorf("%w: khalti initiate returned no pidx: body=%s", ErrProvider, string(resp.Body))
	}

	return &FormResult{
		PaymentURL:  res.PaymentURL,
		ProviderRef: res.Pidx,
		Fields: map[string]string{
			"pidx":       res.Pidx,
			"expires_at": res.ExpiresAt,
		},
	}, nil
}

func (k *KhaltiAdapter) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	pidx := strings.TrimSpace(req.ProviderRef)
	if pidx == "" {
		pidx = strings.TrimSpace(req.Data["pidx"])
	}
	if pidx == "" {
		return nil, fmt.Errorf("%w: khalti verify requires pidx", ErrProvider)
	}

	resp, err := k.client.PostJSON(ctx, k.lookupURL(), map[string]string{"pidx": pidx})
	if err != nil {
		return nil, fmt.Errorf("%w: khalti lookup request: %v", ErrProvider, err)
	}

	// Khalti answers 400 for expired and canceled attempts, so the body is
	// decoded regardless of status.
	var res struct {
		Pidx          string `json:"pidx"`
		TotalAmount   int64  `json:"total_amount"`
		Status        string `json:"status"`
		TransactionID any    `json:"transaction_id"`
	}
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return nil, fmt.Errorf("%w: khalti lookup decode: http=%d err=%v body=%s", ErrProvider, resp.StatusCode, err, string(resp.Body))
	}

	state := strings.TrimSpace(res.Status)
	if state == "" {
		return nil, fmt.Errorf("%w: khalti lookup without status: http=%d body=%s", ErrProvider, resp.StatusCode, string(resp.Body))
	}

	out := &VerificationResult{
		State:       state,
		Amount:      FromPaisa(res.TotalAmount),
		ProviderRef: pidx,
		Raw:         json.RawMessage(resp.Body),
	}

	switch strings.ToLower(state) {
	case "completed":
		out.Terminal = true
		switch {
		case res.Pidx != "" && res.Pidx != pidx:
			out.State = StateReferenceMismatch
		case res.TotalAmount != ToPaisa(req.Amount):
			out.State = StateAmountMismatch
		default:
			out.Success = true
		}
	case "refunded", "expired", "user canceled", "partially refunded":
		out.Terminal = true
	default:
		// Pending, Initiated and anything unknown are rechecked later.
		out.Terminal = false
	}

	return out, nil
}

// ParseCallback reads the query Khalti appends to return_url. Khalti does
// not sign it, so everything here is confirmed through lookup.
func (k *KhaltiAdapter) ParseCallback(q url.Values) (*Callback, error) {
	txn := strings.TrimSpace(q.Get("purchase_order_id"))
	pidx := strings.TrimSpace(q.Get("pidx"))
	if txn == "" {
		return nil, fmt.Errorf("%w: khalti callback missing purchase_order_id", ErrInvalidCallback)
	}

	data := make(map[string]string, len(q))
	for key := range q {
		data[key] = q.Get(key)
	}

	cb := &Callback{
		TransactionID: txn,
		ProviderRef:   pidx,
		Status:        strings.TrimSpace(q.Get("status")),
		Data:          data,
	}

	amt := q.Get("total_amount")
	if amt == "" {
		amt = q.Get("amount")
	}
	if amt != "" {
		paisa, err := strconv.ParseInt(amt, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: khalti amount %q", ErrInvalidCallback, amt)
		}
		claimed := FromPaisa(paisa)
		cb.ClaimedAmount = &claimed
	}

	return cb, nil
}
