package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"ms-inventory/internal/logger"
	"ms-inventory/internal/models"
)

const (
	// DefaultChannel is the broadcast channel connected clients subscribe to.
	DefaultChannel = "global-notifications"
	// EventSoldOut names the notification emitted when an event's
	// AVAILABLE count reaches zero.
	EventSoldOut = "event-sold-out"
)

// AvailabilityCounter recomputes the remaining AVAILABLE tickets for an event.
type AvailabilityCounter interface {
	CountAvailable(ctx context.Context, eventID string) (int, error)
}

// Publisher delivers a payload to a broadcast channel, at most once per
// publish, best effort.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher broadcasts over a redis pub/sub channel.
type RedisPublisher struct {
	Client *redis.Client
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.Client.Publish(ctx, channel, payload).Err()
}

// message is the wire envelope: the notification kind plus its payload,
// so one channel can carry multiple notification types.
type message struct {
	Event string                     `json:"event"`
	Data  models.SoldOutNotification `json:"data"`
}

// StreamPublisher mirrors the sold-out transition onto the internal event
// stream for downstream services. Best effort, like the broadcast itself.
type StreamPublisher interface {
	PublishSoldOut(notification models.SoldOutNotification) error
}

// Metrics counts published sold-out broadcasts.
type Metrics interface {
	TrackSoldOut()
}

// Notifier recomputes an event's availability after bookings and publishes
// a sold-out broadcast when the count is exactly zero. All failures are
// logged and swallowed; the booking that triggered the check never sees them.
type Notifier struct {
	Store     AvailabilityCounter
	Publisher Publisher
	Stream    StreamPublisher
	Channel   string
	Metrics   Metrics
	Logger    *logger.Logger
}

func NewNotifier(store AvailabilityCounter, publisher Publisher, channel string, log *logger.Logger) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Notifier{Store: store, Publisher: publisher, Channel: channel, Logger: log}
}

// CheckSoldOut recounts AVAILABLE tickets for the event and publishes the
// sold-out notification when the count is exactly zero. Returns the count
// and whether the event is full; on error it reports (0, false) after
// logging, never propagating the failure.
func (n *Notifier) CheckSoldOut(ctx context.Context, eventID, eventName string) (int, bool) {
	available, err := n.Store.CountAvailable(ctx, eventID)
	if err != nil {
		n.logError(fmt.Sprintf("availability recount failed for event %s: %v", eventID, err))
		return 0, false
	}
	if available > 0 {
		return available, false
	}

	notification := models.SoldOutNotification{
		EventID:   eventID,
		EventName: eventName,
		Message:   fmt.Sprintf("Event %s is sold out!", eventID),
	}

	payload, err := json.Marshal(message{Event: EventSoldOut, Data: notification})
	if err != nil {
		n.logError(fmt.Sprintf("failed to marshal sold-out notification for event %s: %v", eventID, err))
		return 0, true
	}

	if err := n.Publisher.Publish(ctx, n.Channel, payload); err != nil {
		n.logError(fmt.Sprintf("failed to publish sold-out notification for event %s: %v", eventID, err))
		return 0, true
	}

	if n.Stream != nil {
		if err := n.Stream.PublishSoldOut(notification); err != nil {
			n.logError(fmt.Sprintf("failed to stream sold-out event for %s: %v", eventID, err))
		}
	}

	if n.Metrics != nil {
		n.Metrics.TrackSoldOut()
	}
	if n.Logger != nil {
		n.Logger.Info("NOTIFIER", fmt.Sprintf("published %s for event %s on %s", EventSoldOut, eventID, n.Channel))
	}
	return 0, true
}

func (n *Notifier) logError(message string) {
	if n.Logger != nil {
		n.Logger.Error("NOTIFIER", message)
	}
}
