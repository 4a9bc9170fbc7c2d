package main

import (
	"context"
	"net/http"
	"time"
)

// adminDashboardHandler godoc
//
//	@Summary		Dashboard overview
//	@Description	Payment and member counts with completed totals in paisa.
//	@Tags			admin-dashboard
//	@Produce		json
//	@Success		200	{object}	admindashboard.Overview
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/dashboard [get]
func (app *application) adminDashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	overview, err := app.store.Dashboard.GetOverview(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, overview); err != nil {
		app.internalServerError(w, r, err)
	}
}
