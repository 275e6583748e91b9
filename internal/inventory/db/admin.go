package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"ms-inventory/internal/models"
)

const ticketIDInfix = "TKT"

// nextTicketSequence returns one past the highest "TKT<n>" suffix currently
// assigned under the event. Read inside the insert transaction; the primary
// key constraint catches concurrent creators and the caller retries.
func nextTicketSequence(tickets []string, eventID string) int {
	prefix := eventID + ticketIDInfix
	max := 0
	for _, id := range tickets {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// CreateTickets inserts quantity AVAILABLE tickets of (event, type) at the
// given price, with sequential ids scoped to the event. A duplicate-key
// failure from a concurrent creator surfaces as a unique violation; callers
// retry the whole operation (see IsUniqueViolation).
func (d *DB) CreateTickets(ctx context.Context, eventID string, ticketType models.TicketType, price decimal.Decimal, quantity int) (int, error) {
	var created int
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var existing []string
		err := tx.NewSelect().
			Model((*models.Ticket)(nil)).
			Column("ticket_id").
			Where("event_id = ?", eventID).
			Scan(ctx, &existing)
		if err != nil {
			return err
		}

		seq := nextTicketSequence(existing, eventID)
		now := time.Now()
		batch := make([]models.Ticket, quantity)
		for i := 0; i < quantity; i++ {
			batch[i] = models.Ticket{
				TicketID:  fmt.Sprintf("%s%s%d", eventID, ticketIDInfix, seq+i),
				EventID:   eventID,
				Type:      ticketType,
				Status:    models.TicketAvailable,
				Price:     price,
				CreatedAt: now,
			}
		}

		if _, err := tx.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return err
		}
		created = quantity
		return d.runHook(ctx, tx)
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// DeleteAvailableTickets removes exactly quantity AVAILABLE (unowned)
// tickets for the event, oldest first, optionally restricted to one type.
// Unlike booking this is strict: if fewer than quantity are available the
// whole operation fails with ErrInsufficientStock and nothing is deleted.
// Returns the deleted count and the stock remaining after deletion.
func (d *DB) DeleteAvailableTickets(ctx context.Context, eventID string, ticketType models.TicketType, quantity int) (int, int, error) {
	filter := TicketFilter{
		EventID: eventID,
		Type:    ticketType,
		Status:  models.TicketAvailable,
	}

	var deleted int
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		selected, err := d.lockTickets(ctx, tx, filter, quantity)
		if err != nil {
			return err
		}
		if len(selected) < quantity {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, len(selected))
		}

		res, err := tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("ticket_id IN (?)", bun.In(ticketIDs(selected))).
			Where("ticket_status = ?", models.TicketAvailable).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(affected) != len(selected) {
			return ErrTxConflict
		}

		deleted = int(affected)
		return d.runHook(ctx, tx)
	})
	if err != nil {
		return 0, 0, err
	}

	remaining, err := d.CountTickets(ctx, filter)
	if err != nil {
		return deleted, 0, err
	}
	return deleted, remaining, nil
}
