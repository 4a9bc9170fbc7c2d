package main

import (
	"context"
	"errors"
	"net/http"

	"sathi/internal/turnstile"
)

const turnstileHeader = "CF-Turnstile-Response"

// checkTurnstile verifies the widget token from the body or the
// CF-Turnstile-Response header. It writes the error response and returns
// false when the request must stop.
func (app *application) checkTurnstile(ctx context.Context, w http.ResponseWriter, r *http.Request, token string) bool {
	if token == "" {
		token = r.Header.Get(turnstileHeader)
	}

	err := app.turnstile.Verify(ctx, token, clientIP(r))
	switch {
	case err == nil:
		return true
	case errors.Is(err, turnstile.ErrFailed):
		app.badRequestResponse(w, r, err)
	default:
		app.badGatewayResponse(w, r, err)
	}
	return false
}
