package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mpbooks/mpbooks-backend/api/responses"
	"github.com/mpbooks/mpbooks-backend/api/validators"
	"github.com/mpbooks/mpbooks-backend/internal/messages"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
)

type replyMessageRequest struct {
	Reply string `json:"reply" validate:"required,max=5000"`
}

// ContactCreate takes the public contact form; no authentication required.
func ContactCreate(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		var body messages.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		message, err := svc.Create(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

func MessagesList(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		unrepliedOnly, err := validators.ParseQueryBool(r, "unreplied_only")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.List(ctx, page, messages.ListFilters{UnreadOnly: unreadOnly, UnrepliedOnly: unrepliedOnly})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func MessagesGet(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		messageID, err := validators.ParseUUIDParam(chi.URLParam(r, "messageID"), "message_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		message, err := svc.Get(ctx, messageID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, message)
	}
}

func MessagesMarkRead(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		messageID, err := validators.ParseUUIDParam(chi.URLParam(r, "messageID"), "message_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		message, err := svc.MarkRead(ctx, messageID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, message)
	}
}

func MessagesReply(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		messageID, err := validators.ParseUUIDParam(chi.URLParam(r, "messageID"), "message_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		adminID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body replyMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		message, err := svc.Reply(ctx, messageID, adminID, body.Reply)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, message)
	}
}

func MessagesDelete(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		messageID, err := validators.ParseUUIDParam(chi.URLParam(r, "messageID"), "message_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Delete(ctx, messageID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
