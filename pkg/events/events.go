package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID  string `json:"userId,omitempty"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
}

// Envelope is the stable payload structure carried on the events topic.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// CommentCreatedPayload is emitted when a comment lands on a post.
type CommentCreatedPayload struct {
	CommentID   uuid.UUID  `json:"commentId"`
	PostID      uuid.UUID  `json:"postId"`
	PostOwnerID *uuid.UUID `json:"postOwnerId,omitempty"`
	AuthorID    *uuid.UUID `json:"authorId,omitempty"`
	AuthorName  string     `json:"authorName,omitempty"`
	ItemName    string     `json:"itemName,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
}

// PostApprovalChangedPayload is emitted when moderation flips a post's
// approval status.
type PostApprovalChangedPayload struct {
	PostID      uuid.UUID            `json:"postId"`
	PostOwnerID *uuid.UUID           `json:"postOwnerId,omitempty"`
	ItemName    string               `json:"itemName,omitempty"`
	Status      enums.ApprovalStatus `json:"status"`
}

// NewEnvelope wraps marshaled data in a versioned envelope with a fresh
// event ID.
func NewEnvelope(actor *ActorRef, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
		Data:       raw,
	}, nil
}
