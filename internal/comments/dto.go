package comments

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
)

// CommentDTO is the transport shape for post comments.
type CommentDTO struct {
	ID        uuid.UUID  `json:"id"`
	PostID    uuid.UUID  `json:"post_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateCommentDTO holds the body of a new comment.
type CreateCommentDTO struct {
	Content string `json:"content" validate:"required"`
}

// UpdateCommentDTO carries a comment edit.
type UpdateCommentDTO struct {
	Content string `json:"content" validate:"required"`
}

func FromModel(c *models.Comment) *CommentDTO {
	if c == nil {
		return nil
	}
	return &CommentDTO{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromModels(rows []models.Comment) []CommentDTO {
	out := make([]CommentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
