package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"uboard/internal/middleware"
	"uboard/internal/notifications"
)

// feedPublisher delivers post events to websocket clients. Once the hub is
// wired to redis the event goes through the broadcast channel so every
// instance, this one included, delivers it from its subscriber. Otherwise it
// goes straight to the local hub.
type feedPublisher struct {
	hub      *notifications.Hub
	notifier *notifications.Notifier
	wired    atomic.Bool
}

func newFeedPublisher(hub *notifications.Hub, notifier *notifications.Notifier) *feedPublisher {
	return &feedPublisher{hub: hub, notifier: notifier}
}

// Publish implements service.Publisher.
func (p *feedPublisher) Publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	message, err := encodeEvent(eventType, payload)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to marshal event",
			slog.String("event", eventType), slog.String("error", err.Error()))
		return
	}

	if p.wired.Load() && p.notifier.Enabled() {
		// The request context may be cancelled once the response is written.
		err := p.notifier.PublishBroadcast(context.WithoutCancel(ctx), message)
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "broadcast publish failed, delivering locally",
			slog.String("event", eventType), slog.String("error", err.Error()))
	}
	if p.hub != nil {
		p.hub.BroadcastAll(message)
	}
}

func encodeEvent(eventType string, payload map[string]interface{}) (string, error) {
	eventJSON, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		return "", err
	}
	return string(eventJSON), nil
}
