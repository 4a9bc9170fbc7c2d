package turnstile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sathi/internal/httpclient"
)

var ErrFailed = errors.New("turnstile validation failed")

const siteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// verifyTimeout bounds each siteverify call.
const verifyTimeout = 5 * time.Second

type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
	Action     string   `json:"action"`
}

// Verifier checks Cloudflare Turnstile tokens sent by the public forms.
// A Verifier without a secret accepts everything.
type Verifier struct {
	secret   string
	hostname string
	url      string
	client   *httpclient.Client
}

func New(secret, expectedHostname string) *Verifier {
	return newVerifier(secret, expectedHostname, verifyTimeout)
}

func newVerifier(secret, expectedHostname string, timeout time.Duration) *Verifier {
	return &Verifier{
		secret:   secret,
		hostname: expectedHostname,
		url:      siteverifyURL,
		client:   httpclient.New().WithTimeout(timeout),
	}
}

func (v *Verifier) Enabled() bool {
	return v != nil && v.secret != ""
}

func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		return ErrFailed
	}

	form := map[string]string{
		"secret":   v.secret,
		"response": token,
	}
	if remoteIP != "" {
		form["remoteip"] = remoteIP
	}

	resp, err := v.client.PostForm(ctx, v.url, form)
	if err != nil {
		return fmt.Errorf("turnstile siteverify: %w", err)
	}

	var out verifyResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return fmt.Errorf("turnstile decode: http=%d: %w", resp.StatusCode, err)
	}
	if !out.Success {
		return fmt.Errorf("%w: %v", ErrFailed, out.ErrorCodes)
	}
	if v.hostname != "" && out.Hostname != v.hostname {
		return fmt.Errorf("%w: hostname %q", ErrFailed, out.Hostname)
	}
	return nil
}
