package service

import "context"

// Realtime event names.
const (
	EventPostCreated         = "post_created"
	EventPostDeleted         = "post_deleted"
	EventPostReactionUpdated = "post_reaction_updated"
	EventCommentCreated      = "comment_created"
)

// Publisher fans out domain events after a write commits. Implementations
// must not block the caller.
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, map[string]interface{}) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
