package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sathi/internal/domain/members"
	"sathi/internal/domain/paymentsrepo"
)

type CreateMemberPayload struct {
	FullName      string `json:"fullName" validate:"required,max=120"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Phone         string `json:"phone" validate:"required,nepaliphone"`
	Address       string `json:"address" validate:"max=255"`
	Membership    string `json:"membership" validate:"omitempty,oneof=general life volunteer"`
	Motivation    string `json:"motivation" validate:"max=2000"`
	TransactionID string `json:"transactionId,omitempty"`
	CaptchaToken  string `json:"captchaToken,omitempty"`
}

// createMemberHandler godoc
//
//	@Summary		Apply for membership
//	@Description	Stores a pending membership application. A completed membership payment can be linked by transaction id.
//	@Tags			members
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateMemberPayload		true	"Application"
//	@Success		201		{object}	members.Member
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		409		{object}	error
//	@Router			/members [post]
func (app *application) createMemberHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateMemberPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if !app.checkTurnstile(ctx, w, r, payload.CaptchaToken) {
		return
	}

	m := &members.Member{
		FullName:   strings.TrimSpace(payload.FullName),
		Email:      strings.ToLower(strings.TrimSpace(payload.Email)),
		Phone:      payload.Phone,
		Address:    strings.TrimSpace(payload.Address),
		Membership: payload.Membership,
		Motivation: strings.TrimSpace(payload.Motivation),
	}

	if txID := strings.TrimSpace(payload.TransactionID); txID != "" {
		p, err := app.store.Payments.GetByTransactionID(ctx, txID)
		if err != nil {
			if errors.Is(err, paymentsrepo.ErrNotFound) {
				app.badRequestResponse(w, r, fmt.Errorf("payment %q not found", txID))
				return
			}
			app.internalServerError(w, r, err)
			return
		}
		if p.Purpose != paymentsrepo.PurposeMembership || p.Status != paymentsrepo.StatusCompleted {
			app.badRequestResponse(w, r, errors.New("payment is not a completed membership payment"))
			return
		}
		m.PaymentID = &p.ID
	}

	m, err := app.store.Members.Create(ctx, m)
	if err != nil {
		if errors.Is(err, members.ErrPaymentLinked) {
			app.conflictResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, m); err != nil {
		app.internalServerError(w, r, err)
	}
}
