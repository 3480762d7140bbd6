package comments

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusfindz/campusfindz-backend/internal/authz"
	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	"github.com/campusfindz/campusfindz-backend/pkg/enums"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/events"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
	"github.com/campusfindz/campusfindz-backend/pkg/pagination"
)

const (
	maxCommentLength = 2000
	excerptLength    = 120
)

// Service defines comment operations scoped to a post.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, postID uuid.UUID, dto CreateCommentDTO) (*CommentDTO, error)
	ListByPost(ctx context.Context, postID uuid.UUID, params ListParams) (*ListResult, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, dto UpdateCommentDTO) (*CommentDTO, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

// PostFinder is the read surface needed to verify the parent post.
type PostFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType enums.EventType, actor *events.ActorRef, payload any)
}

// ListParams configures comment pagination.
type ListParams struct {
	Limit  int
	Cursor string
}

// ListResult wraps returned comments and the cursor for the next page.
type ListResult struct {
	Items  []CommentDTO `json:"items"`
	Cursor string       `json:"cursor"`
}

type service struct {
	repo      Repository
	posts     PostFinder
	publisher EventPublisher
	logg      *logger.Logger
}

// NewService wires comment dependencies. The publisher may be nil.
func NewService(repo Repository, posts PostFinder, publisher EventPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "comments repository required")
	}
	if posts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "post finder required")
	}
	return &service{repo: repo, posts: posts, publisher: publisher, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, postID uuid.UUID, dto CreateCommentDTO) (*CommentDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required to comment")
	}
	content := strings.TrimSpace(dto.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment content required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment too long")
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}

	userID := actor.UserID
	comment := &models.Comment{
		ID:      uuid.New(),
		PostID:  post.ID,
		UserID:  &userID,
		Content: content,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment")
	}

	s.publishCommentCreated(ctx, actor, post, comment)
	return FromModel(comment), nil
}

func (s *service) ListByPost(ctx context.Context, postID uuid.UUID, params ListParams) (*ListResult, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.ListByPost(ctx, postID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}

	result := &ListResult{Items: FromModels(rows)}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, dto UpdateCommentDTO) (*CommentDTO, error) {
	content := strings.TrimSpace(dto.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment content required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment too long")
	}

	comment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment")
	}
	if !authz.CanMutate(actor, comment.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin may edit this comment")
	}

	comment.Content = content
	if err := s.repo.Update(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update comment")
	}
	return FromModel(comment), nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	comment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment")
	}
	if !authz.CanMutate(actor, comment.UserID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin may delete this comment")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete comment")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
	}
	return nil
}

func (s *service) publishCommentCreated(ctx context.Context, actor authz.Actor, post *models.Post, comment *models.Comment) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, enums.EventCommentCreated, &events.ActorRef{
		UserID:  actor.UserID.String(),
		IsAdmin: actor.IsAdmin,
	}, events.CommentCreatedPayload{
		CommentID:   comment.ID,
		PostID:      post.ID,
		PostOwnerID: post.UserID,
		AuthorID:    comment.UserID,
		ItemName:    post.ItemName,
		Excerpt:     excerpt(comment.Content),
	})
}

func excerpt(content string) string {
	if utf8.RuneCountInString(content) <= excerptLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:excerptLength]) + "…"
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
