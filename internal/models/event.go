package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventDraft    EventStatus = "DRAFT"
	EventUploaded EventStatus = "UPLOADED"
)

// DefaultTicketLimit applies when an event has no per-user-per-type limit configured.
const DefaultTicketLimit = 5

type Event struct {
	bun.BaseModel `bun:"table:events"`

	EventID              string      `bun:"event_id,pk" json:"event_id"`
	Name                 string      `bun:"event_name,notnull" json:"event_name"`
	Place                string      `bun:"event_place" json:"event_place"`
	Category             string      `bun:"event_category" json:"event_category"`
	Description          string      `bun:"event_description" json:"event_description"`
	Image                string      `bun:"event_image" json:"event_image"`
	Organizer            string      `bun:"event_organizer" json:"event_organizer"`
	Date                 time.Time   `bun:"event_date,notnull" json:"event_date"`
	Status               EventStatus `bun:"event_status,notnull" json:"event_status"`
	TicketsLimitPerUser  int         `bun:"event_tickets_limit_by_user_by_type,nullzero" json:"event_tickets_limit_by_user_by_type,omitempty"`
	CreatedAt            time.Time   `bun:"event_creation_date,notnull" json:"event_creation_date"`
}

// LimitPerUserPerType returns the configured booking limit, or the default when unset.
func (e *Event) LimitPerUserPerType() int {
	if e.TicketsLimitPerUser <= 0 {
		return DefaultTicketLimit
	}
	return e.TicketsLimitPerUser
}

// DeriveStatus computes the event status from field completeness:
// category, image and description must all be present for UPLOADED.
func (e *Event) DeriveStatus() EventStatus {
	if e.Category == "" || e.Image == "" || e.Description == "" {
		return EventDraft
	}
	return EventUploaded
}
