package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestType string

const (
	RequestBook   RequestType = "BOOK"
	RequestCancel RequestType = "CANCEL"
)

// BookingRequest is the reservation intent posted by the web frontend.
// It is resolved immediately into a batch of ticket transitions; no
// pending state exists between request and resolution.
type BookingRequest struct {
	UserID       string      `json:"userId"`
	TicketNumber int         `json:"ticketNumber"`
	RequestType  RequestType `json:"requestType"`
	TicketType   TicketType  `json:"ticketType"`
	EventID      string      `json:"eventId"`
}

type BookingResponse struct {
	Status  int    `json:"status"`
	Success bool   `json:"success,omitempty"`
	Count   int    `json:"count,omitempty"`
	Message string `json:"message"`
}

// BookingEvent is the payload streamed to Kafka after a committed
// booking or cancellation. AllocationID uniquely identifies the
// allocation so downstream consumers can deduplicate.
type BookingEvent struct {
	AllocationID string      `json:"allocation_id"`
	UserID       string      `json:"user_id"`
	EventID      string      `json:"event_id"`
	TicketType   TicketType  `json:"ticket_type"`
	RequestType  RequestType `json:"request_type"`
	Count        int         `json:"count"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

// TicketBatchEvent is the payload streamed to Kafka after an admin
// creates a batch of tickets.
type TicketBatchEvent struct {
	EventID    string          `json:"event_id"`
	TicketType TicketType      `json:"ticket_type"`
	Count      int             `json:"count"`
	Price      decimal.Decimal `json:"price"`
	OccurredAt time.Time       `json:"occurred_at"`
}
