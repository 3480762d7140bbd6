package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	"github.com/campusfindz/campusfindz-backend/pkg/enums"
	"github.com/campusfindz/campusfindz-backend/pkg/events"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

const dedupeTTL = 24 * time.Hour

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type subscription interface {
	Receive(ctx context.Context, handler func(context.Context, *pubsub.Message)) error
}

// eventDeduper marks events as consumed so redeliveries do not produce
// duplicate notifications.
type eventDeduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	EventDedupeKey(eventID string) string
}

// Consumer watches domain events and turns them into notification rows.
type Consumer struct {
	repo         repository
	subscription subscription
	deduper      eventDeduper
	logg         *logger.Logger
}

// NewConsumer builds the notifications consumer.
func NewConsumer(repo repository, sub subscription, deduper eventDeduper, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if sub == nil {
		return nil, fmt.Errorf("events subscription required")
	}
	if deduper == nil {
		return nil, fmt.Errorf("event deduper required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: sub,
		deduper:      deduper,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.EventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope events.Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if envelope.EventID == "" {
		c.logg.Info(logCtx, "envelope missing event id")
		return processResult{ack: true}
	}

	dedupeKey := c.deduper.EventDedupeKey(envelope.EventID)
	fresh, err := c.deduper.SetNX(ctx, dedupeKey, 1, dedupeTTL)
	if err != nil {
		c.logg.Error(logCtx, "dedupe check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.deduper.Del(ctx, dedupeKey)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.EventType, envelope events.Envelope, logCtx context.Context) error {
	switch eventType {
	case enums.EventCommentCreated:
		var payload events.CommentCreatedPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse comment payload: %w", err)
		}
		return c.notifyNewComment(ctx, payload, logCtx)
	case enums.EventPostApprovalChanged:
		var payload events.PostApprovalChangedPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse approval payload: %w", err)
		}
		return c.notifyApprovalChange(ctx, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) notifyNewComment(ctx context.Context, payload events.CommentCreatedPayload, logCtx context.Context) error {
	if payload.PostOwnerID == nil || *payload.PostOwnerID == uuid.Nil {
		c.logg.Info(logCtx, "comment on orphan post, nobody to notify")
		return nil
	}
	// Commenting on your own post does not notify you.
	if payload.AuthorID != nil && *payload.AuthorID == *payload.PostOwnerID {
		return nil
	}

	item := payload.ItemName
	if item == "" {
		item = "your post"
	}
	message := fmt.Sprintf("New comment on %s.", item)
	if payload.Excerpt != "" {
		message = fmt.Sprintf("New comment on %s: %q", item, payload.Excerpt)
	}
	link := fmt.Sprintf("/posts/%s", payload.PostID)
	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  *payload.PostOwnerID,
		Type:    enums.NotificationTypeNewComment,
		Title:   "New comment",
		Message: message,
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "post owner notified of new comment")
	return nil
}

func (c *Consumer) notifyApprovalChange(ctx context.Context, payload events.PostApprovalChangedPayload, logCtx context.Context) error {
	if payload.PostOwnerID == nil || *payload.PostOwnerID == uuid.Nil {
		c.logg.Info(logCtx, "approval change on orphan post, nobody to notify")
		return nil
	}

	item := payload.ItemName
	if item == "" {
		item = "your post"
	}
	var notificationType enums.NotificationType
	var title, message string
	switch payload.Status {
	case enums.ApprovalStatusApproved:
		notificationType = enums.NotificationTypePostApproved
		title = "Post approved"
		message = fmt.Sprintf("Your post %s has been approved and is now visible.", item)
	case enums.ApprovalStatusRejected:
		notificationType = enums.NotificationTypePostRejected
		title = "Post rejected"
		message = fmt.Sprintf("Your post %s was rejected by a moderator.", item)
	default:
		c.logg.Info(logCtx, "approval status not handled")
		return nil
	}

	link := fmt.Sprintf("/posts/%s", payload.PostID)
	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  *payload.PostOwnerID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "post owner notified of approval change")
	return nil
}

func stringPtr(value string) *string {
	return &value
}
