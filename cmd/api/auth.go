package main

import (
	"errors"
	"net/http"
	"strings"

	"sathi/internal/domain/users"
)

// ErrorBadRequestResponse represents the standard error format for bad request API responses.
//
//	@name			ErrorBadRequestResponse
//	@description	Standard error response format returned by all bad request API endpoints
type ErrorBadRequestResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"It show error from err.Error()"`
	Status  int    `json:"status" example:"400"`
}

// ErrorInternalServerResponse represents the standard error format for internal server API responses.
//
//	@name			ErrorInternalServerResponse
//	@description	Standard error response format returned by all internal server error API endpoints
type ErrorInternalServerResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"the server encountered a problem"`
	Status  int    `json:"status" example:"500"`
}

type AdminLoginPayload struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=3,max=72"`
}

type AdminSession struct {
	User  *users.User `json:"user"`
	Token string      `json:"token"`
}

var errInvalidCredentials = errors.New("invalid credentials")

func (app *application) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/v1/admin",
		HttpOnly: true,
		Secure:   app.config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(app.config.Auth.TokenExp.Seconds()),
	})
}

func (app *application) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/v1/admin",
		HttpOnly: true,
		Secure:   app.config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// adminLoginHandler godoc
//
//	@Summary		Admin login
//	@Description	Checks admin credentials and sets an HttpOnly session cookie. The token is also returned for API clients.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AdminLoginPayload			true	"Admin credentials"
//	@Success		200		{object}	AdminSession				"Session created"
//	@Failure		400		{object}	ErrorBadRequestResponse		"Bad request"
//	@Failure		401		{object}	error						"Invalid credentials"
//	@Failure		500		{object}	ErrorInternalServerResponse	"Internal Server Error"
//	@Router			/admin/login [post]
func (app *application) adminLoginHandler(w http.ResponseWriter, r *http.Request) {
	var payload AdminLoginPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.store.Users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			app.unauthorizedErrorResponse(w, r, errInvalidCredentials)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, errInvalidCredentials)
		return
	}

	if !user.IsActive || user.Role != users.RoleAdmin {
		app.forbiddenResponse(w, r)
		return
	}

	token, err := app.authenticator.GenerateToken(user.ID, user.Role)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.setSessionCookie(w, token)

	if err := app.jsonResponse(w, http.StatusOK, AdminSession{User: user, Token: token}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminLogoutHandler godoc
//
//	@Summary	Admin logout
//	@Tags		admin
//	@Success	204
//	@Security	ApiKeyAuth
//	@Router		/admin/logout [post]
func (app *application) adminLogoutHandler(w http.ResponseWriter, r *http.Request) {
	app.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// adminSessionHandler godoc
//
//	@Summary	Current admin
//	@Tags		admin
//	@Produce	json
//	@Success	200	{object}	users.User
//	@Failure	401	{object}	error
//	@Security	ApiKeyAuth
//	@Router		/admin/me [get]
func (app *application) adminSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := getAdminFromContext(r)
	if err := app.jsonResponse(w, http.StatusOK, user); err != nil {
		app.internalServerError(w, r, err)
	}
}
