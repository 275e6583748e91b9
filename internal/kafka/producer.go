package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-inventory/internal/config"
	"ms-inventory/internal/models"
)

// Producer streams inventory lifecycle events to Kafka.
type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

// Publish writes a single message to the given topic.
func (p *Producer) Publish(topic string, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishBookingCompleted streams a committed booking.
func (p *Producer) PublishBookingCompleted(event models.BookingEvent) error {
	return p.publishJSON(p.Topics.BookingCompleted, event.EventID, event)
}

// PublishBookingCancelled streams a committed cancellation.
func (p *Producer) PublishBookingCancelled(event models.BookingEvent) error {
	return p.publishJSON(p.Topics.BookingCancelled, event.EventID, event)
}

// PublishTicketsCreated streams an admin ticket batch creation.
func (p *Producer) PublishTicketsCreated(event models.TicketBatchEvent) error {
	return p.publishJSON(p.Topics.TicketsCreated, event.EventID, event)
}

// PublishSoldOut streams a sold-out transition for downstream consumers.
func (p *Producer) PublishSoldOut(notification models.SoldOutNotification) error {
	return p.publishJSON(p.Topics.EventSoldOut, notification.EventID, notification)
}

func (p *Producer) publishJSON(topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return p.Publish(topic, key, value)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
