package worker

import (
	"github.com/spec-kit/ticket-router/internal/events"
	"github.com/spec-kit/ticket-router/internal/service"
)

// StartEventSubscribers registers notification handlers and, when publisher is
// non-nil, the Redis fan-out on the dispatcher.
func StartEventSubscribers(dispatcher events.Dispatcher, notifications *service.NotificationService, publisher *events.RedisPublisher) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if publisher != nil && dispatcher != nil {
		publisher.Register(dispatcher)
	}
}
