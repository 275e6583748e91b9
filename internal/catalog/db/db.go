package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-inventory/internal/models"
)

// eventsPageSize matches the catalog listing page size of the web frontend.
const eventsPageSize = 10

type DB struct {
	Bun *bun.DB
}

// GetEventByID fetches one event; sql.ErrNoRows when absent.
func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// EventExists checks whether an event with the given id exists.
func (d *DB) EventExists(ctx context.Context, id string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("event_id = ?", id).
		Exists(ctx)
}

// ListEvents returns one page of events, optionally filtered by status.
func (d *DB) ListEvents(ctx context.Context, status models.EventStatus, page int) ([]models.Event, error) {
	if page < 1 {
		page = 1
	}
	var events []models.Event
	q := d.Bun.NewSelect().Model(&events)
	if status != "" {
		q = q.Where("event_status = ?", status)
	}
	err := q.Order("event_creation_date DESC").
		Limit(eventsPageSize).
		Offset((page - 1) * eventsPageSize).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// LastEventID returns the most recently created event's id, or "" when the
// catalog is empty.
func (d *DB) LastEventID(ctx context.Context) (string, error) {
	var id string
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("event_id").
		Order("event_creation_date DESC").
		Limit(1).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// InsertEvent inserts a fully populated event. A duplicate id surfaces as
// a unique violation for the caller to retry with a fresh sequence.
func (d *DB) InsertEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// UpdateEvent overwrites the mutable fields of an event.
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(event).
		Column("event_name", "event_place", "event_category", "event_description",
			"event_image", "event_organizer", "event_date", "event_status",
			"event_tickets_limit_by_user_by_type").
		Where("event_id = ?", event.EventID).
		Exec(ctx)
	return err
}

// DeleteEvent removes an event by id.
func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("event_id = ?", id).
		Exec(ctx)
	return err
}

// IsUniqueViolation reports a duplicate-key failure from Postgres or from
// the SQLite test driver.
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
