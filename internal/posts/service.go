package posts

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusfindz/campusfindz-backend/internal/authz"
	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	dbtypes "github.com/campusfindz/campusfindz-backend/pkg/db/types"
	"github.com/campusfindz/campusfindz-backend/pkg/enums"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/events"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
	"github.com/campusfindz/campusfindz-backend/pkg/pagination"
)

var dateFoundRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Service defines post CRUD and moderation operations.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, dto CreatePostDTO) (*PostDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PostDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, dto UpdatePostDTO) (*PostDTO, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

// EventPublisher emits domain events; implementations must tolerate
// being a no-op.
type EventPublisher interface {
	Publish(ctx context.Context, eventType enums.EventType, actor *events.ActorRef, payload any)
}

// ListParams filters the public listing. The listing is deliberately
// not filtered by approval status: pending and rejected reports stay
// visible, moderation only annotates them.
type ListParams struct {
	Type   string
	UserID *uuid.UUID
	Limit  int
	Cursor string
}

// ListResult wraps returned posts and the cursor for the next page.
type ListResult struct {
	Items  []PostDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

type service struct {
	repo      Repository
	publisher EventPublisher
	logg      *logger.Logger
}

// NewService wires post dependencies. The publisher may be nil when
// eventing is disabled.
func NewService(repo Repository, publisher EventPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "posts repository required")
	}
	return &service{repo: repo, publisher: publisher, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, dto CreatePostDTO) (*PostDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required to create posts")
	}

	title := strings.TrimSpace(dto.Title)
	itemName := strings.TrimSpace(dto.ItemName)
	if title == "" || itemName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and item name are required")
	}
	postType, err := enums.ParsePostType(dto.PostType)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post type must be lost or found")
	}
	if err := validateDateFound(dto.DateFound); err != nil {
		return nil, err
	}

	// Moderation status is fixed at creation: admin-authored reports go
	// straight to approved, everyone else starts pending. An explicit
	// status from a non-admin is a violation, not a default.
	status := enums.ApprovalStatusPending
	if actor.IsAdmin {
		status = enums.ApprovalStatusApproved
	}
	if dto.ApprovalStatus != nil {
		if !actor.IsAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may set approval status")
		}
		if !dto.ApprovalStatus.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status")
		}
		status = *dto.ApprovalStatus
	}

	userID := actor.UserID
	post := &models.Post{
		ID:              uuid.New(),
		UserID:          &userID,
		Title:           title,
		PostType:        postType,
		ItemName:        itemName,
		Description:     strings.TrimSpace(dto.Description),
		Content:         dto.Content,
		LocationFound:   trimPtr(dto.LocationFound),
		CurrentLocation: trimPtr(dto.CurrentLocation),
		DateFound:       trimPtr(dto.DateFound),
		Tags:            dbtypes.StringList(dto.Tags),
		PhotoIDs:        dbtypes.StringList(dto.PhotoIDs),
		ApprovalStatus:  status,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create post")
	}
	return FromModel(post), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PostDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	return FromModel(post), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listPostsParams{
		Limit:  params.Limit,
		UserID: params.UserID,
	}
	if params.Type != "" {
		postType, err := enums.ParsePostType(params.Type)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "post type must be lost or found")
		}
		query.Type = &postType
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list posts")
	}

	result := &ListResult{Items: FromModels(rows)}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, dto UpdatePostDTO) (*PostDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	if !authz.CanMutate(actor, post.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin may edit this post")
	}

	previousStatus := post.ApprovalStatus
	if err := applyUpdate(post, actor, dto); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update post")
	}

	if post.ApprovalStatus != previousStatus {
		s.publishApprovalChanged(ctx, actor, post)
	}
	return FromModel(post), nil
}

func applyUpdate(post *models.Post, actor authz.Actor, dto UpdatePostDTO) error {
	if dto.Title != nil {
		title := strings.TrimSpace(*dto.Title)
		if title == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		post.Title = title
	}
	if dto.PostType != nil {
		postType, err := enums.ParsePostType(*dto.PostType)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "post type must be lost or found")
		}
		post.PostType = postType
	}
	if dto.ItemName != nil {
		itemName := strings.TrimSpace(*dto.ItemName)
		if itemName == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name cannot be empty")
		}
		post.ItemName = itemName
	}
	if dto.Description != nil {
		post.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.Content != nil {
		post.Content = *dto.Content
	}
	if dto.LocationFound != nil {
		post.LocationFound = trimPtr(dto.LocationFound)
	}
	if dto.CurrentLocation != nil {
		post.CurrentLocation = trimPtr(dto.CurrentLocation)
	}
	if dto.DateFound != nil {
		if err := validateDateFound(dto.DateFound); err != nil {
			return err
		}
		post.DateFound = trimPtr(dto.DateFound)
	}
	if dto.Tags != nil {
		post.Tags = dbtypes.StringList(*dto.Tags)
	}
	if dto.PhotoIDs != nil {
		post.PhotoIDs = dbtypes.StringList(*dto.PhotoIDs)
	}
	if dto.ApprovalStatus != nil {
		if !actor.IsAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only admins may change approval status")
		}
		if !dto.ApprovalStatus.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status")
		}
		post.ApprovalStatus = *dto.ApprovalStatus
	}
	return nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	if !authz.CanMutate(actor, post.UserID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin may delete this post")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete post")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return nil
}

func (s *service) publishApprovalChanged(ctx context.Context, actor authz.Actor, post *models.Post) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, enums.EventPostApprovalChanged, &events.ActorRef{
		UserID:  actor.UserID.String(),
		IsAdmin: actor.IsAdmin,
	}, events.PostApprovalChangedPayload{
		PostID:      post.ID,
		PostOwnerID: post.UserID,
		ItemName:    post.ItemName,
		Status:      post.ApprovalStatus,
	})
}

func validateDateFound(value *string) error {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	if !dateFoundRe.MatchString(trimmed) {
		return pkgerrors.New(pkgerrors.CodeValidation, "date_found must be YYYY-MM-DD")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
