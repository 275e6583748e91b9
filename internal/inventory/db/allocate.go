package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"ms-inventory/internal/models"
)

// BookTickets transitions up to quantity AVAILABLE tickets of (event, type)
// to SOLD/owned-by-user as a single transaction. The selection and the
// transition are the same set of rows: the update re-checks the AVAILABLE
// status under the row locks and the whole transaction fails with
// ErrTxConflict if any selected ticket was transitioned by another writer.
// Returns the number of tickets transitioned, which is less than quantity
// when inventory is short and zero when none matched.
func (d *DB) BookTickets(ctx context.Context, eventID string, ticketType models.TicketType, userID string, quantity int) (int, error) {
	var booked int
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		selected, err := d.lockTickets(ctx, tx, TicketFilter{
			EventID: eventID,
			Type:    ticketType,
			Status:  models.TicketAvailable,
		}, quantity)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			booked = 0
			return nil
		}

		res, err := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("ticket_status = ?", models.TicketSold).
			Set("user_id = ?", userID).
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

		booked = int(affected)
		return d.runHook(ctx, tx)
	})
	if err != nil {
		return 0, err
	}
	return booked, nil
}

// CancelTickets transitions up to quantity of the user's SOLD tickets of
// (event, type) back to AVAILABLE/unowned. Only tickets currently SOLD and
// held by this user are eligible; an AVAILABLE ticket with a stale user
// reference cannot exist and is never selected.
func (d *DB) CancelTickets(ctx context.Context, eventID string, ticketType models.TicketType, userID string, quantity int) (int, error) {
	var cancelled int
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		selected, err := d.lockTickets(ctx, tx, TicketFilter{
			EventID: eventID,
			Type:    ticketType,
			Status:  models.TicketSold,
			UserID:  userID,
		}, quantity)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			cancelled = 0
			return nil
		}

		res, err := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("ticket_status = ?", models.TicketAvailable).
			Set("user_id = NULL").
			Where("ticket_id IN (?)", bun.In(ticketIDs(selected))).
			Where("ticket_status = ?", models.TicketSold).
			Where("user_id = ?", userID).
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

		cancelled = int(affected)
		return d.runHook(ctx, tx)
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}
