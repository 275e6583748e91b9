package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type TicketType string

const (
	TicketVIP       TicketType = "VIP"
	TicketStandard  TicketType = "STANDARD"
	TicketEarlyBird TicketType = "EARLY_BIRD"
)

// ValidTicketType reports whether t is one of the known ticket types.
func ValidTicketType(t TicketType) bool {
	switch t {
	case TicketVIP, TicketStandard, TicketEarlyBird:
		return true
	}
	return false
}

type TicketStatus string

const (
	TicketAvailable TicketStatus = "AVAILABLE"
	TicketSold      TicketStatus = "SOLD"
)

// Ticket is one uniquely identified unit of inventory. Its identifier is
// the owning event id plus a "TKT<n>" sequence suffix. UserID is set iff
// the ticket is SOLD; an AVAILABLE ticket is always unowned.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID  string          `bun:"ticket_id,pk" json:"ticket_id"`
	EventID   string          `bun:"event_id,notnull" json:"event_id"`
	UserID    *string         `bun:"user_id,nullzero" json:"user_id"`
	Type      TicketType      `bun:"ticket_type,notnull" json:"ticket_type"`
	Status    TicketStatus    `bun:"ticket_status,notnull" json:"ticket_status"`
	Price     decimal.Decimal `bun:"ticket_price,notnull" json:"ticket_price"`
	CreatedAt time.Time       `bun:"ticket_creation_date,notnull" json:"ticket_creation_date"`
}
