package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"sathi/internal/checkout"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/payments"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CreatePaymentPayload struct {
	Gateway      string                `json:"gateway"`
	Amount       decimal.Decimal       `json:"amount" swaggertype:"number"`
	Currency     string                `json:"currency"`
	Description  string                `json:"description"`
	CustomerInfo payments.CustomerInfo `json:"customerInfo"`
	Metadata     map[string]string     `json:"metadata,omitempty"`
	ReturnURL    string                `json:"returnUrl"`
	CancelURL    string                `json:"cancelUrl"`
	Purpose      string                `json:"purpose"`
	ReferenceID  string                `json:"referenceId"`
	CaptchaToken string                `json:"captchaToken,omitempty"`
}

// paymentView is the public projection of a payment. Donor contact details
// stay out of it.
type paymentView struct {
	TransactionID  string     `json:"transactionId"`
	Gateway        string     `json:"gateway"`
	Status         string     `json:"status"`
	Purpose        string     `json:"purpose"`
	Amount         string     `json:"amount"`
	Currency       string     `json:"currency"`
	FailureReason  *string    `json:"failureReason,omitempty"`
	CertificateURL *string    `json:"certificateUrl,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
}

func newPaymentView(p *paymentsrepo.Payment) paymentView {
	return paymentView{
		TransactionID:  p.TransactionID,
		Gateway:        p.Provider,
		Status:         string(p.Status),
		Purpose:        string(p.Purpose),
		Amount:         payments.FormatAmount(p.Amount()),
		Currency:       p.Currency,
		FailureReason:  p.FailureReason,
		CertificateURL: p.CertificateURL,
		CreatedAt:      p.CreatedAt,
		VerifiedAt:     p.VerifiedAt,
	}
}

type settlementView struct {
	paymentView
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// CreatePayment godoc
//
//	@Summary		Start a payment
//	@Description	Records a pending payment and returns either a hosted payment URL (Khalti) or an auto-submitting HTML form (eSewa, IME Pay, ConnectIPS).
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreatePaymentPayload	true	"Payment request"
//	@Success		201		{object}	payments.PaymentResult
//	@Failure		400		{object}	error
//	@Failure		502		{object}	error
//	@Router			/payments [post]
func (app *application) createPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreatePaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	if !app.checkTurnstile(ctx, w, r, payload.CaptchaToken) {
		return
	}

	res, err := app.checkout.Initiate(ctx, checkout.InitiateInput{
		PaymentRequest: payments.PaymentRequest{
			Gateway:      payments.Provider(strings.ToLower(strings.TrimSpace(payload.Gateway))),
			Amount:       payload.Amount,
			Currency:     payload.Currency,
			Description:  payload.Description,
			CustomerInfo: payload.CustomerInfo,
			Metadata:     payload.Metadata,
			ReturnURL:    payload.ReturnURL,
			CancelURL:    payload.CancelURL,
		},
		Purpose:     paymentsrepo.Purpose(strings.ToLower(strings.TrimSpace(payload.Purpose))),
		ReferenceID: payload.ReferenceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrValidation), errors.Is(err, checkout.ErrValidation):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, payments.ErrProvider):
			app.badGatewayResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, res); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GetPayment godoc
//
//	@Summary		Payment status
//	@Description	Returns the public status of a payment by transaction id.
//	@Tags			payments
//	@Produce		json
//	@Param			transactionID	path		string	true	"Transaction ID"
//	@Success		200				{object}	paymentView
//	@Failure		404				{object}	error
//	@Router			/payments/{transactionID} [get]
func (app *application) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "transactionID")

	p, err := app.checkout.Status(r.Context(), txID)
	if err != nil {
		if errors.Is(err, paymentsrepo.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, newPaymentView(p)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// VerifyPayment godoc
//
//	@Summary		Re-verify a payment
//	@Description	Asks the gateway for the current state of a pending payment using only the stored amount and reference.
//	@Tags			payments
//	@Produce		json
//	@Param			transactionID	path		string	true	"Transaction ID"
//	@Success		200				{object}	settlementView
//	@Failure		400				{object}	error
//	@Failure		404				{object}	error
//	@Router			/payments/{transactionID}/verify [post]
func (app *application) verifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "transactionID")

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	st, err := app.checkout.Reverify(ctx, txID)
	if err != nil {
		switch {
		case errors.Is(err, paymentsrepo.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, checkout.ErrValidation):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	view := settlementView{
		paymentView: newPaymentView(st.Payment),
		Outcome:     string(st.Outcome),
		Reason:      st.Reason,
	}
	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}
