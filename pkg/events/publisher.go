package events

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/campusfindz/campusfindz-backend/pkg/enums"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

const publishTimeout = 10 * time.Second

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) *gcppubsub.PublishResult
}

// Publisher sends enveloped domain events to the events topic. A nil
// Publisher is a no-op, so services can run without Pub/Sub configured.
type Publisher struct {
	topic topicPublisher
	logg  *logger.Logger
}

// NewPublisher wraps a Pub/Sub publisher handle. The handle may be nil
// when eventing is disabled.
func NewPublisher(topic *gcppubsub.Publisher, logg *logger.Logger) *Publisher {
	if topic == nil {
		return nil
	}
	return &Publisher{topic: topic, logg: logg}
}

// Publish wraps the payload in an envelope and emits it with the event
// type as a message attribute. Failures are logged, not returned: event
// delivery must never fail the request that produced it.
func (p *Publisher) Publish(ctx context.Context, eventType enums.EventType, actor *ActorRef, payload any) {
	if p == nil || p.topic == nil {
		return
	}
	envelope, err := NewEnvelope(actor, payload)
	if err != nil {
		p.logError(ctx, eventType, err)
		return
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		p.logError(ctx, eventType, err)
		return
	}
	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":   envelope.EventID,
			"event_type": string(eventType),
			"created_at": envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	result := p.topic.Publish(publishCtx, msg)
	if result == nil {
		return
	}
	if _, err := result.Get(publishCtx); err != nil {
		p.logError(ctx, eventType, err)
	}
}

func (p *Publisher) logError(ctx context.Context, eventType enums.EventType, err error) {
	if p.logg == nil {
		return
	}
	p.logg.Error(p.logg.WithField(ctx, "event_type", string(eventType)), "failed to publish domain event", err)
}
