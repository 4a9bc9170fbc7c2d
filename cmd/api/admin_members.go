package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sathi/internal/domain/members"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/mailer"
	"sathi/internal/params"

	"github.com/go-chi/chi/v5"
)

type AdminMemberList struct {
	Members    []*members.Member `json:"members"`
	Pagination params.Pagination `json:"pagination"`
}

type AdminMemberDetail struct {
	Member  *members.Member       `json:"member"`
	Payment *paymentsrepo.Payment `json:"payment,omitempty"`
}

type ReviewMemberPayload struct {
	Note string `json:"note" validate:"max=1000"`
}

// adminListMembersHandler godoc
//
//	@Summary	List membership applications
//	@Tags		admin-members
//	@Produce	json
//	@Param		status	query		string	false	"pending, approved or rejected"
//	@Param		page	query		int		false	"Page number"
//	@Param		limit	query		int		false	"Page size"
//	@Success	200		{object}	AdminMemberList
//	@Failure	400		{object}	ErrorBadRequestResponse
//	@Security	ApiKeyAuth
//	@Router		/admin/members [get]
func (app *application) adminListMembersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := params.ParsePagination(q)

	var status members.Status
	switch s := members.Status(strings.ToLower(strings.TrimSpace(q.Get("status")))); s {
	case "", members.StatusPending, members.StatusApproved, members.StatusRejected:
		status = s
	default:
		app.badRequestResponse(w, r, fmt.Errorf("invalid status %q", s))
		return
	}

	list, total, err := app.store.Members.List(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	page.ComputeMeta(total)

	if list == nil {
		list = []*members.Member{}
	}
	if err := app.jsonResponse(w, http.StatusOK, AdminMemberList{Members: list, Pagination: page}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminGetMemberHandler godoc
//
//	@Summary	Get a membership application
//	@Tags		admin-members
//	@Produce	json
//	@Param		memberID	path		int	true	"Member ID"
//	@Success	200			{object}	AdminMemberDetail
//	@Failure	404			{object}	error
//	@Security	ApiKeyAuth
//	@Router		/admin/members/{memberID} [get]
func (app *application) adminGetMemberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "memberID"), 10, 64)
	if err != nil || id <= 0 {
		app.badRequestResponse(w, r, errors.New("invalid member id"))
		return
	}

	m, err := app.store.Members.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, members.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	detail := AdminMemberDetail{Member: m}
	if m.PaymentID != nil {
		// a missing payment still shows the application
		p, err := app.store.Payments.GetByID(r.Context(), *m.PaymentID)
		switch {
		case err == nil:
			detail.Payment = p
		case !errors.Is(err, paymentsrepo.ErrNotFound):
			app.internalServerError(w, r, err)
			return
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, detail); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminApproveMemberHandler godoc
//
//	@Summary	Approve a membership application
//	@Tags		admin-members
//	@Accept		json
//	@Produce	json
//	@Param		memberID	path		int					true	"Member ID"
//	@Param		payload		body		ReviewMemberPayload	false	"Optional note"
//	@Success	200			{object}	members.Member
//	@Failure	404			{object}	error
//	@Failure	409			{object}	error
//	@Security	ApiKeyAuth
//	@Router		/admin/members/{memberID}/approve [post]
func (app *application) adminApproveMemberHandler(w http.ResponseWriter, r *http.Request) {
	app.reviewMember(w, r, members.StatusApproved)
}

// adminRejectMemberHandler godoc
//
//	@Summary	Reject a membership application
//	@Tags		admin-members
//	@Accept		json
//	@Produce	json
//	@Param		memberID	path		int					true	"Member ID"
//	@Param		payload		body		ReviewMemberPayload	false	"Optional note"
//	@Success	200			{object}	members.Member
//	@Failure	404			{object}	error
//	@Failure	409			{object}	error
//	@Security	ApiKeyAuth
//	@Router		/admin/members/{memberID}/reject [post]
func (app *application) adminRejectMemberHandler(w http.ResponseWriter, r *http.Request) {
	app.reviewMember(w, r, members.StatusRejected)
}

func (app *application) reviewMember(w http.ResponseWriter, r *http.Request, to members.Status) {
	id, err := strconv.ParseInt(chi.URLParam(r, "memberID"), 10, 64)
	if err != nil || id <= 0 {
		app.badRequestResponse(w, r, errors.New("invalid member id"))
		return
	}

	var payload ReviewMemberPayload
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if err := Validate.Struct(payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	admin := getAdminFromContext(r)

	m, err := app.store.Members.Review(r.Context(), id, to, admin.ID, strings.TrimSpace(payload.Note))
	if err != nil {
		switch {
		case errors.Is(err, members.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, members.ErrAlreadyReviewed):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.logger.Infow("membership reviewed", "member_id", m.ID, "status", m.Status, "admin_id", admin.ID)

	if app.mailer != nil && m.Email != "" {
		data := map[string]any{
			"Name":       m.FullName,
			"Membership": m.Membership,
			"Approved":   m.Status == members.StatusApproved,
			"Note":       payload.Note,
		}
		app.background(func() {
			if _, err := app.mailer.Send(mailer.MembershipDecisionTemplate, m.FullName, m.Email, data); err != nil {
				app.logger.Errorw("membership decision email failed", "member_id", m.ID, "error", err)
			}
		})
	}

	if err := app.jsonResponse(w, http.StatusOK, m); err != nil {
		app.internalServerError(w, r, err)
	}
}
