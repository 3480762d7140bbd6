package photos

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusfindz/campusfindz-backend/internal/authz"
	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

const sniffLen = 512

// allowedImageTypes is the accepted set for photo uploads. The type is
// sniffed from the bytes, never trusted from the request.
var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/gif":  {},
}

// PhotoDTO is the wire shape for photo metadata.
type PhotoDTO struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Content is an open photo stream plus the metadata needed to serve it.
type Content struct {
	Photo  *PhotoDTO
	Reader io.ReadSeekCloser
}

// Service defines photo upload and retrieval operations.
type Service interface {
	Upload(ctx context.Context, actor authz.Actor, filename string, r io.Reader) (*PhotoDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PhotoDTO, error)
	Open(ctx context.Context, id uuid.UUID) (*Content, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type service struct {
	repo     Repository
	store    BlobStore
	maxBytes int64
	logg     *logger.Logger
}

// NewService wires photo dependencies. maxUploadMB bounds a single upload.
func NewService(repo Repository, store BlobStore, maxUploadMB int, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "photos repository required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "blob store required")
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &service{
		repo:     repo,
		store:    store,
		maxBytes: int64(maxUploadMB) << 20,
		logg:     logg,
	}, nil
}

func (s *service) Upload(ctx context.Context, actor authz.Actor, filename string, r io.Reader) (*PhotoDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required to upload photos")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename required")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read upload")
	}
	head = head[:n]
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty upload")
	}
	contentType := http.DetectContentType(head)
	if _, ok := allowedImageTypes[contentType]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type")
	}

	// One byte past the limit distinguishes too-large from exactly-at-limit.
	limited := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1)
	path, size, err := s.store.Save(ctx, filename, limited)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store photo")
	}
	if size > s.maxBytes {
		_ = s.store.Remove(ctx, path)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo exceeds the upload size limit")
	}

	photo := &models.Photo{
		ID:          uuid.New(),
		UserID:      actor.UserID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		StoragePath: path,
	}
	if err := s.repo.Create(ctx, photo); err != nil {
		_ = s.store.Remove(ctx, path)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save photo metadata")
	}
	return fromModel(photo), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PhotoDTO, error) {
	photo, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromModel(photo), nil
}

func (s *service) Open(ctx context.Context, id uuid.UUID) (*Content, error) {
	photo, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	reader, err := s.store.Open(ctx, photo.StoragePath)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open photo")
	}
	return &Content{Photo: fromModel(photo), Reader: reader}, nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	photo, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	ownerID := photo.UserID
	if !authz.CanMutate(actor, &ownerID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the uploader or an admin may delete this photo")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete photo")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
	}
	if err := s.store.Remove(ctx, photo.StoragePath); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to remove photo bytes", err)
	}
	return nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	photo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load photo")
	}
	return photo, nil
}

func fromModel(photo *models.Photo) *PhotoDTO {
	return &PhotoDTO{
		ID:          photo.ID,
		UserID:      photo.UserID,
		Filename:    photo.Filename,
		ContentType: photo.ContentType,
		SizeBytes:   photo.SizeBytes,
		CreatedAt:   photo.CreatedAt,
	}
}
