package controllers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusfindz/campusfindz-backend/api/middleware"
	"github.com/campusfindz/campusfindz-backend/api/responses"
	"github.com/campusfindz/campusfindz-backend/api/validators"
	"github.com/campusfindz/campusfindz-backend/internal/photos"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

const multipartMemoryLimit = 4 << 20

// UploadPhoto accepts a multipart form with a "photo" file field.
func UploadPhoto(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photos service unavailable"))
			return
		}

		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		file, header, err := r.FormFile("photo")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "photo file field required"))
			return
		}
		defer file.Close()

		actor, _ := middleware.ActorFromContext(r.Context())
		photo, err := svc.Upload(r.Context(), actor, header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, photo)
	}
}

// GetPhoto returns photo metadata.
func GetPhoto(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photos service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(chi.URLParam(r, "photoID"), "photoID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		photo, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, photo)
	}
}

// ServePhoto streams the stored bytes with the sniffed content type.
func ServePhoto(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photos service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(chi.URLParam(r, "photoID"), "photoID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		content, err := svc.Open(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer content.Reader.Close()

		w.Header().Set("Content-Type", content.Photo.ContentType)
		w.Header().Set("Cache-Control", "private, max-age=86400")
		if _, err := io.Copy(w, content.Reader); err != nil && logg != nil {
			logg.Error(r.Context(), "failed to stream photo", err)
		}
	}
}

// DeletePhoto removes a photo and its stored bytes.
func DeletePhoto(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photos service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(chi.URLParam(r, "photoID"), "photoID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, _ := middleware.ActorFromContext(r.Context())
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "photo deleted"})
	}
}
