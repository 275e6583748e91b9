package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-inventory/internal/models"
)

// ErrTxConflict signals that a concurrent writer touched the selected rows
// between selection and transition. The caller retries the whole operation.
var ErrTxConflict = errors.New("transaction conflict on selected tickets")

// ErrInsufficientStock is returned by DeleteAvailableTickets when fewer
// AVAILABLE tickets exist than were requested for deletion.
var ErrInsufficientStock = errors.New("insufficient available tickets")

// ErrTicketNotFound is returned when a ticket id does not exist.
var ErrTicketNotFound = errors.New("ticket not found")

type DB struct {
	Bun *bun.DB

	// txHook, when set, runs inside every multi-row transition after the
	// mutation and before commit. Used by tests to inject failures.
	txHook func(ctx context.Context, tx bun.Tx) error
}

// TicketFilter enumerates the optional predicates of a ticket query.
type TicketFilter struct {
	EventID string
	Type    models.TicketType
	Status  models.TicketStatus
	UserID  string
}

func (f TicketFilter) apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f.EventID != "" {
		q = q.Where("event_id = ?", f.EventID)
	}
	if f.Type != "" {
		q = q.Where("ticket_type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("ticket_status = ?", f.Status)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	return q
}

// lockTickets selects up to limit tickets matching the filter in creation
// order, holding row locks until the surrounding transaction resolves.
// SQLite (tests) serializes writers on its own, so FOR UPDATE is only
// emitted for Postgres.
func (d *DB) lockTickets(ctx context.Context, tx bun.Tx, f TicketFilter, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	q := f.apply(tx.NewSelect().Model(&tickets)).
		Order("ticket_creation_date ASC", "ticket_id ASC").
		Limit(limit)
	if d.Bun.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (d *DB) runHook(ctx context.Context, tx bun.Tx) error {
	if d.txHook != nil {
		return d.txHook(ctx, tx)
	}
	return nil
}

func ticketIDs(tickets []models.Ticket) []string {
	ids := make([]string, len(tickets))
	for i, t := range tickets {
		ids[i] = t.TicketID
	}
	return ids
}

// IsConflict reports whether err is a transaction conflict worth retrying:
// either our own selection/transition mismatch or a Postgres serialization
// or deadlock failure.
func IsConflict(err error) bool {
	if errors.Is(err, ErrTxConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation reports whether err is a duplicate-key constraint
// violation, from Postgres or from the SQLite test driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ListTickets returns all tickets matching the filter in creation order.
func (d *DB) ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := f.apply(d.Bun.NewSelect().Model(&tickets)).
		Order("ticket_creation_date ASC", "ticket_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListTicketsPage returns one newest-first page of tickets plus the total count.
func (d *DB) ListTicketsPage(ctx context.Context, page, pageSize int) ([]models.Ticket, int, error) {
	var tickets []models.Ticket
	total, err := d.Bun.NewSelect().
		Model(&tickets).
		Order("ticket_creation_date DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// CountTickets returns the number of tickets matching the filter.
func (d *DB) CountTickets(ctx context.Context, f TicketFilter) (int, error) {
	return f.apply(d.Bun.NewSelect().Model((*models.Ticket)(nil))).Count(ctx)
}

// CountAvailable returns the number of AVAILABLE tickets for an event,
// across all ticket types.
func (d *DB) CountAvailable(ctx context.Context, eventID string) (int, error) {
	return d.CountTickets(ctx, TicketFilter{EventID: eventID, Status: models.TicketAvailable})
}

// GetTicketByID fetches a single ticket or ErrTicketNotFound.
func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// DeleteTicket removes a single ticket by id.
func (d *DB) DeleteTicket(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("ticket_id = ?", id).
		Exec(ctx)
	return err
}

// GetTicketsByUser returns all tickets currently held by a user.
func (d *DB) GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	return d.ListTickets(ctx, TicketFilter{UserID: userID})
}
