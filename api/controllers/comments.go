package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campusfindz/campusfindz-backend/api/middleware"
	"github.com/campusfindz/campusfindz-backend/api/responses"
	"github.com/campusfindz/campusfindz-backend/api/validators"
	"github.com/campusfindz/campusfindz-backend/internal/comments"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
	"github.com/campusfindz/campusfindz-backend/pkg/pagination"
)

// CreateComment adds a comment under a post.
func CreateComment(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comments service unavailable"))
			return
		}

		postID, err := validators.ParseURLUUID(chi.URLParam(r, "postID"), "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var dto comments.CreateCommentDTO
		if err := validators.DecodeJSONBody(r, &dto); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, _ := middleware.ActorFromContext(r.Context())
		created, err := svc.Create(r.Context(), actor, postID, dto)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListComments returns a post's comments oldest first.
func ListComments(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comments service unavailable"))
			return
		}

		postID, err := validators.ParseURLUUID(chi.URLParam(r, "postID"), "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByPost(r.Context(), postID, comments.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, result.Items, result.Cursor)
	}
}

// UpdateComment edits a comment's content.
func UpdateComment(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comments service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(chi.URLParam(r, "commentID"), "commentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var dto comments.UpdateCommentDTO
		if err := validators.DecodeJSONBody(r, &dto); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, _ := middleware.ActorFromContext(r.Context())
		updated, err := svc.Update(r.Context(), actor, id, dto)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// DeleteComment removes a comment.
func DeleteComment(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comments service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(chi.URLParam(r, "commentID"), "commentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, _ := middleware.ActorFromContext(r.Context())
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "comment deleted"})
	}
}
