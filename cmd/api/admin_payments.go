package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/params"
	"sathi/internal/payments"

	"github.com/go-chi/chi/v5"
)

type AdminPaymentList struct {
	Payments   []*paymentsrepo.Payment `json:"payments"`
	Pagination params.Pagination       `json:"pagination"`
}

type AdminPaymentDetail struct {
	Payment *paymentsrepo.Payment      `json:"payment"`
	Logs    []*paymentsrepo.PaymentLog `json:"logs"`
}

// adminListPaymentsHandler godoc
//
//	@Summary		List payments
//	@Description	Newest first. Filter by status, gateway and creation time.
//	@Tags			admin-payments
//	@Produce		json
//	@Param			status		query		string	false	"pending, completed or failed"
//	@Param			provider	query		string	false	"esewa, khalti, imepay or connectips"
//	@Param			since		query		string	false	"RFC3339 timestamp or YYYY-MM-DD"
//	@Param			page		query		int		false	"Page number"
//	@Param			limit		query		int		false	"Page size"
//	@Success		200			{object}	AdminPaymentList
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/payments [get]
func (app *application) adminListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := params.ParsePagination(q)

	f := paymentsrepo.ListFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
		Since:  params.ParseTime(q, "since"),
	}

	if s := strings.TrimSpace(q.Get("status")); s != "" {
		f.Status = paymentsrepo.Status(strings.ToLower(s))
		if !f.Status.Valid() {
			app.badRequestResponse(w, r, fmt.Errorf("invalid status %q", s))
			return
		}
	}

	if s := strings.TrimSpace(q.Get("provider")); s != "" {
		p, ok := payments.ParseProvider(s)
		if !ok {
			app.badRequestResponse(w, r, fmt.Errorf("invalid provider %q", s))
			return
		}
		f.Provider = string(p)
	}

	list, total, err := app.store.Payments.List(r.Context(), f)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	page.ComputeMeta(total)

	if list == nil {
		list = []*paymentsrepo.Payment{}
	}
	if err := app.jsonResponse(w, http.StatusOK, AdminPaymentList{Payments: list, Pagination: page}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminGetPaymentHandler godoc
//
//	@Summary		Payment detail
//	@Description	Full payment record with its audit log.
//	@Tags			admin-payments
//	@Produce		json
//	@Param			paymentID	path		int	true	"Payment ID"
//	@Success		200			{object}	AdminPaymentDetail
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/payments/{paymentID} [get]
func (app *application) adminGetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "paymentID"), 10, 64)
	if err != nil || id <= 0 {
		app.badRequestResponse(w, r, errors.New("invalid payment id"))
		return
	}

	ctx := r.Context()
	p, err := app.store.Payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, paymentsrepo.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	logs, err := app.store.PayLogs.ListByPayment(ctx, p.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*paymentsrepo.PaymentLog{}
	}

	if err := app.jsonResponse(w, http.StatusOK, AdminPaymentDetail{Payment: p, Logs: logs}); err != nil {
		app.internalServerError(w, r, err)
	}
}
