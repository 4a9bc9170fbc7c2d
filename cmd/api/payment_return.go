package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sathi/internal/checkout"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/payments"

	"github.com/go-chi/chi/v5"
)

var returnPage = template.Must(template.New("return").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>{{.Title}}</title>
    <style>
      body { font-family: system-ui, -apple-system, Segoe UI, Roboto; padding: 24px; }
      .btn { display: inline-block; padding: 12px 16px; border-radius: 10px; background:#111; color:#fff; text-decoration:none; }
      .muted { opacity: 0.7; margin-top: 12px; }
    </style>
  </head>
  <body>
    <h3>{{.Title}}</h3>
    <p>{{.Message}}</p>
    {{if .TransactionID}}<p class="muted">Transaction: {{.TransactionID}}</p>{{end}}
    <p class="muted">If you are not redirected automatically, use the button below.</p>
    <p><a class="btn" href="{{.Target}}">Continue</a></p>
    <script>
      setTimeout(function () { window.location.replace({{.Target}}); }, 2000);
    </script>
  </body>
</html>
`))

type returnPageData struct {
	Title         string
	Message       string
	TransactionID string
	Target        string
}

// PaymentReturn godoc
//
//	@Summary		Gateway return
//	@Description	Browser landing point after a gateway checkout. Settles the payment and forwards the donor to the site.
//	@Tags			payments
//	@Produce		html
//	@Param			gateway	path	string	true	"esewa, khalti, imepay or connectips"
//	@Success		200
//	@Router			/payments/{gateway}/return [get]
func (app *application) paymentReturnHandler(w http.ResponseWriter, r *http.Request) {
	provider, ok := payments.ParseProvider(chi.URLParam(r, "gateway"))
	if !ok {
		app.notFoundResponse(w, r, fmt.Errorf("unknown gateway %q", chi.URLParam(r, "gateway")))
		return
	}

	// r.Form merges the query string with a POSTed body.
	if err := r.ParseForm(); err != nil {
		app.logger.Warnw("payment return: bad form", "provider", provider, "error", err)
		app.renderReturnPage(w, nil, checkout.OutcomeFailed, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	st, err := app.checkout.HandleCallback(ctx, provider, r.Form)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrValidation), errors.Is(err, paymentsrepo.ErrNotFound):
			app.logger.Warnw("payment return rejected", "provider", provider, "error", err)
			app.renderReturnPage(w, nil, checkout.OutcomeFailed, "invalid_callback")
		default:
			app.logger.Errorw("payment return failed", "provider", provider, "error", err)
			app.renderReturnPage(w, nil, checkout.OutcomePending, "")
		}
		return
	}

	app.logger.Infow("payment return",
		"provider", provider,
		"transaction_id", st.Payment.TransactionID,
		"outcome", st.Outcome,
		"reason", st.Reason,
		"changed", st.Changed,
	)
	app.renderReturnPage(w, st.Payment, st.Outcome, st.Reason)
}

// returnTarget picks where the donor lands: the URLs they supplied at
// initiation or the frontend result page.
func (app *application) returnTarget(p *paymentsrepo.Payment, outcome checkout.Outcome, reason string) string {
	base := strings.TrimRight(app.config.FrontendURL, "/") + "/payments/result"
	if p != nil {
		switch {
		case outcome == checkout.OutcomeFailed && p.Metadata["cancel_url"] != "":
			base = p.Metadata["cancel_url"]
		case p.Metadata["return_url"] != "":
			base = p.Metadata["return_url"]
		}
	}

	u, err := url.Parse(base)
	if err != nil {
		return app.config.FrontendURL
	}

	q := u.Query()
	q.Set("result", string(outcome))
	if p != nil {
		q.Set("transaction_id", p.TransactionID)
		q.Set("provider", p.Provider)
	}
	if reason != "" {
		q.Set("reason", reason)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (app *application) renderReturnPage(w http.ResponseWriter, p *paymentsrepo.Payment, outcome checkout.Outcome, reason string) {
	data := returnPageData{Target: app.returnTarget(p, outcome, reason)}
	if p != nil {
		data.TransactionID = p.TransactionID
	}

	switch outcome {
	case checkout.OutcomeCompleted:
		data.Title = "Thank you!"
		data.Message = "Your payment was received."
	case checkout.OutcomeFailed:
		data.Title = "Payment not completed"
		data.Message = "The payment could not be confirmed."
	default:
		data.Title = "Payment processing"
		data.Message = "We are still confirming your payment with the gateway."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Options", "DENY")
	w.WriteHeader(http.StatusOK)
	if err := returnPage.Execute(w, data); err != nil {
		app.logger.Errorw("render return page", "error", err)
	}
}
