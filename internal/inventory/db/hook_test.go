package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-inventory/internal/models"
)

func setupHookTestDB(t *testing.T) (*DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Ticket)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create tickets table: %v", err)
	}

	return &DB{Bun: bunDB}, bunDB
}

func seedHookTickets(t *testing.T, bunDB *bun.DB, n int) {
	t.Helper()
	var tickets []models.Ticket
	for i := 1; i <= n; i++ {
		tickets = append(tickets, models.Ticket{
			TicketID:  fmt.Sprintf("E00001TKT%d", i),
			EventID:   "E00001",
			Type:      models.TicketStandard,
			Status:    models.TicketAvailable,
			Price:     decimal.NewFromInt(50),
			CreatedAt: time.Date(2026, 6, 1, 12, i, 0, 0, time.UTC),
		})
	}
	_, err := bunDB.NewInsert().Model(&tickets).Exec(context.Background())
	assert.NoError(t, err)
}

// A failure after the status transition but before commit must roll the
// whole batch back: partially booked state never becomes visible.
func TestBookTicketsRollsBackOnFailure(t *testing.T) {
	store, bunDB := setupHookTestDB(t)
	defer bunDB.Close()

	seedHookTickets(t, bunDB, 3)

	boom := errors.New("injected failure")
	store.txHook = func(ctx context.Context, tx bun.Tx) error {
		return boom
	}

	booked, err := store.BookTickets(context.Background(), "E00001", models.TicketStandard, "user123", 2)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, booked)

	store.txHook = nil
	available, err := store.CountAvailable(context.Background(), "E00001")
	assert.NoError(t, err)
	assert.Equal(t, 3, available)

	sold, err := store.CountTickets(context.Background(), TicketFilter{Status: models.TicketSold})
	assert.NoError(t, err)
	assert.Equal(t, 0, sold)
}

func TestDeleteAvailableTicketsRollsBackOnFailure(t *testing.T) {
	store, bunDB := setupHookTestDB(t)
	defer bunDB.Close()

	seedHookTickets(t, bunDB, 3)

	boom := errors.New("injected failure")
	store.txHook = func(ctx context.Context, tx bun.Tx) error {
		return boom
	}

	_, _, err := store.DeleteAvailableTickets(context.Background(), "E00001", models.TicketStandard, 2)
	assert.ErrorIs(t, err, boom)

	store.txHook = nil
	available, err := store.CountAvailable(context.Background(), "E00001")
	assert.NoError(t, err)
	assert.Equal(t, 3, available)
}
