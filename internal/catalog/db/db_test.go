package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-inventory/internal/catalog/db"
	"ms-inventory/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Event)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create events table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func insertEvent(t *testing.T, eventDB *db.DB, id string, status models.EventStatus, createdAt time.Time) {
	t.Helper()
	event := models.Event{
		EventID:   id,
		Name:      "Event " + id,
		Place:     "Somewhere",
		Category:  "Music",
		Date:      createdAt.AddDate(0, 2, 0),
		Status:    status,
		CreatedAt: createdAt,
	}
	err := eventDB.InsertEvent(context.Background(), &event)
	assert.NoError(t, err)
}

func TestGetEventByID(t *testing.T) {
	eventDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	insertEvent(t, eventDB, "E00001", models.EventUploaded, time.Now())

	event, err := eventDB.GetEventByID(context.Background(), "E00001")
	assert.NoError(t, err)
	assert.Equal(t, "Event E00001", event.Name)

	_, err = eventDB.GetEventByID(context.Background(), "E99999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEventExists(t *testing.T) {
	eventDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	insertEvent(t, eventDB, "E00001", models.EventDraft, time.Now())

	exists, err := eventDB.EventExists(context.Background(), "E00001")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = eventDB.EventExists(context.Background(), "E99999")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestListEventsFilterAndPaging(t *testing.T) {
	eventDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		status := models.EventUploaded
		if i%2 == 0 {
			status = models.EventDraft
		}
		insertEvent(t, eventDB, fmt.Sprintf("E%05d", i), status, base.Add(time.Duration(i)*time.Hour))
	}

	// Unfiltered first page, newest first, capped at the page size.
	events, err := eventDB.ListEvents(context.Background(), "", 1)
	assert.NoError(t, err)
	assert.Len(t, events, 10)
	assert.Equal(t, "E00012", events[0].EventID)

	events, err = eventDB.ListEvents(context.Background(), "", 2)
	assert.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = eventDB.ListEvents(context.Background(), models.EventUploaded, 1)
	assert.NoError(t, err)
	assert.Len(t, events, 6)
	for _, event := range events {
		assert.Equal(t, models.EventUploaded, event.Status)
	}
}

func TestLastEventID(t *testing.T) {
	eventDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	// Empty catalog yields no id, not an error.
	id, err := eventDB.LastEventID(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "", id)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertEvent(t, eventDB, "E00001", models.EventDraft, base)
	insertEvent(t, eventDB, "E00002", models.EventDraft, base.Add(time.Hour))

	id, err = eventDB.LastEventID(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "E00002", id)
}

func TestInsertEventDuplicateID(t *testing.T) {
	eventDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	insertEvent(t, eventDB, "E00001", models.EventDraft, time.Now())

	duplicate := models.Event{
		EventID:   "E00001",
		Name:      "Duplicate",
		Date:      time.Now(),
		Status:    models.EventDraft,
		CreatedAt: time.Now(),
	}
	err := eventDB.InsertEvent(context.Background(), &duplicate)
	assert.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
}

func TestUpdateEvent(t *testing.T) {
	eventDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	insertEvent(t, eventDB, "E00001", models.EventDraft, time.Now())

	event, err := eventDB.GetEventByID(context.Background(), "E00001")
	assert.NoError(t, err)

	event.Name = "Renamed Fest"
	event.Description = "Now with a description"
	event.Status = models.EventUploaded
	err = eventDB.UpdateEvent(context.Background(), event)
	assert.NoError(t, err)

	updated, err := eventDB.GetEventByID(context.Background(), "E00001")
	assert.NoError(t, err)
	assert.Equal(t, "Renamed Fest", updated.Name)
	assert.Equal(t, models.EventUploaded, updated.Status)
}

func TestDeleteEvent(t *testing.T) {
	eventDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	insertEvent(t, eventDB, "E00001", models.EventDraft, time.Now())

	err := eventDB.DeleteEvent(context.Background(), "E00001")
	assert.NoError(t, err)

	exists, err := eventDB.EventExists(context.Background(), "E00001")
	assert.NoError(t, err)
	assert.False(t, exists)
}
