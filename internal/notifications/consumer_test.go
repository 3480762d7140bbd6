package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	"github.com/campusfindz/campusfindz-backend/pkg/enums"
	"github.com/campusfindz/campusfindz-backend/pkg/events"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

type recordingRepo struct {
	created []*models.Notification
	err     error
}

func (r *recordingRepo) Create(ctx context.Context, notification *models.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, notification)
	return nil
}

type fakeDeduper struct {
	seen    map[string]bool
	deleted []string
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]bool{}}
}

func (f *fakeDeduper) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeDeduper) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.seen, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeDeduper) EventDedupeKey(eventID string) string {
	return "event_seen:" + eventID
}

type nopSubscription struct{}

func (nopSubscription) Receive(ctx context.Context, handler func(context.Context, *pubsub.Message)) error {
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestConsumer(t *testing.T, repo repository, deduper eventDeduper) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(repo, nopSubscription{}, deduper, testLogger())
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return consumer
}

func eventMessage(t *testing.T, eventType enums.EventType, payload any) *pubsub.Message {
	t.Helper()
	envelope, err := events.NewEnvelope(nil, payload)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestConsumer_CommentCreatedNotifiesOwner(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo, newFakeDeduper())
	ownerID := uuid.New()
	authorID := uuid.New()

	msg := eventMessage(t, enums.EventCommentCreated, events.CommentCreatedPayload{
		CommentID:   uuid.New(),
		PostID:      uuid.New(),
		PostOwnerID: &ownerID,
		AuthorID:    &authorID,
		ItemName:    "Blue backpack",
		Excerpt:     "I think I saw it",
	})
	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	created := repo.created[0]
	if created.UserID != ownerID {
		t.Fatalf("expected notification for owner %s, got %s", ownerID, created.UserID)
	}
	if created.Type != enums.NotificationTypeNewComment {
		t.Fatalf("unexpected type %s", created.Type)
	}
}

func TestConsumer_SelfCommentSkipped(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo, newFakeDeduper())
	ownerID := uuid.New()

	msg := eventMessage(t, enums.EventCommentCreated, events.CommentCreatedPayload{
		CommentID:   uuid.New(),
		PostID:      uuid.New(),
		PostOwnerID: &ownerID,
		AuthorID:    &ownerID,
	})
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notification for self comment, got %d", len(repo.created))
	}
}

func TestConsumer_ApprovalChangeNotifiesOwner(t *testing.T) {
	ownerID := uuid.New()
	cases := []struct {
		name     string
		status   enums.ApprovalStatus
		wantType enums.NotificationType
		wantRows int
	}{
		{name: "approved", status: enums.ApprovalStatusApproved, wantType: enums.NotificationTypePostApproved, wantRows: 1},
		{name: "rejected", status: enums.ApprovalStatusRejected, wantType: enums.NotificationTypePostRejected, wantRows: 1},
		{name: "pending ignored", status: enums.ApprovalStatusPending, wantRows: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &recordingRepo{}
			consumer := newTestConsumer(t, repo, newFakeDeduper())
			msg := eventMessage(t, enums.EventPostApprovalChanged, events.PostApprovalChangedPayload{
				PostID:      uuid.New(),
				PostOwnerID: &ownerID,
				ItemName:    "Umbrella",
				Status:      tc.status,
			})
			result := consumer.process(context.Background(), msg)
			if !result.ack {
				t.Fatalf("expected ack, got %+v", result)
			}
			if len(repo.created) != tc.wantRows {
				t.Fatalf("expected %d rows, got %d", tc.wantRows, len(repo.created))
			}
			if tc.wantRows == 1 && repo.created[0].Type != tc.wantType {
				t.Fatalf("expected type %s, got %s", tc.wantType, repo.created[0].Type)
			}
		})
	}
}

func TestConsumer_DedupeSkipsRedelivery(t *testing.T) {
	repo := &recordingRepo{}
	deduper := newFakeDeduper()
	consumer := newTestConsumer(t, repo, deduper)
	ownerID := uuid.New()
	authorID := uuid.New()

	msg := eventMessage(t, enums.EventCommentCreated, events.CommentCreatedPayload{
		CommentID:   uuid.New(),
		PostID:      uuid.New(),
		PostOwnerID: &ownerID,
		AuthorID:    &authorID,
	})
	first := consumer.process(context.Background(), msg)
	second := consumer.process(context.Background(), msg)
	if !first.ack || !second.ack {
		t.Fatalf("expected both deliveries acked")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected a single notification, got %d", len(repo.created))
	}
}

func TestConsumer_FailureReleasesDedupeAndNacks(t *testing.T) {
	repo := &recordingRepo{err: context.DeadlineExceeded}
	deduper := newFakeDeduper()
	consumer := newTestConsumer(t, repo, deduper)
	ownerID := uuid.New()
	authorID := uuid.New()

	msg := eventMessage(t, enums.EventCommentCreated, events.CommentCreatedPayload{
		CommentID:   uuid.New(),
		PostID:      uuid.New(),
		PostOwnerID: &ownerID,
		AuthorID:    &authorID,
	})
	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack on repo failure, got %+v", result)
	}
	if len(deduper.deleted) != 1 {
		t.Fatalf("expected dedupe key released, got %v", deduper.deleted)
	}
}

func TestConsumer_MalformedEnvelopeAcked(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo, newFakeDeduper())

	msg := &pubsub.Message{
		Data:       []byte("not json"),
		Attributes: map[string]string{"event_type": string(enums.EventCommentCreated)},
	}
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected poison message acked, got %+v", result)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notifications, got %d", len(repo.created))
	}
}
