package enums

// EventType names a domain event carried on the events topic.
type EventType string

const (
	EventCommentCreated      EventType = "comment.created"
	EventPostApprovalChanged EventType = "post.approval_changed"
)

func (e EventType) IsValid() bool {
	switch e {
	case EventCommentCreated, EventPostApprovalChanged:
		return true
	}
	return false
}
