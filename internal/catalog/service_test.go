package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-inventory/internal/catalog"
	"ms-inventory/internal/models"
)

// MockDBLayer is a mock implementation of the DBLayer interface
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockDBLayer) EventExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) ListEvents(ctx context.Context, status models.EventStatus, page int) ([]models.Event, error) {
	args := m.Called(ctx, status, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

func (m *MockDBLayer) LastEventID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDBLayer) InsertEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockDBLayer) UpdateEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockDBLayer) DeleteEvent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func draftEvent() models.Event {
	return models.Event{
		Name:     "Summer Fest",
		Place:    "Riverside Park",
		Category: "Music",
		Date:     time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC),
	}
}

func TestGetEventNotFound(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetEventByID", mock.Anything, "E99999").Return(nil, sql.ErrNoRows)

	svc := catalog.NewService(mockDB, nil)

	_, err := svc.GetEvent(context.Background(), "E99999")
	assert.ErrorIs(t, err, catalog.ErrEventNotFound)
}

func TestCreateEventMissingFields(t *testing.T) {
	svc := catalog.NewService(new(MockDBLayer), nil)

	event := draftEvent()
	event.Name = ""
	_, err := svc.CreateEvent(context.Background(), event)
	assert.ErrorIs(t, err, catalog.ErrMissingFields)

	event = draftEvent()
	event.Date = time.Time{}
	_, err = svc.CreateEvent(context.Background(), event)
	assert.ErrorIs(t, err, catalog.ErrMissingFields)
}

func TestCreateEventAssignsSequentialID(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("LastEventID", mock.Anything).Return("E00041", nil)
	mockDB.On("InsertEvent", mock.Anything, mock.MatchedBy(func(e *models.Event) bool {
		return e.EventID == "E00042"
	})).Return(nil)

	svc := catalog.NewService(mockDB, nil)

	created, err := svc.CreateEvent(context.Background(), draftEvent())
	assert.NoError(t, err)
	assert.Equal(t, "E00042", created.EventID)
	mockDB.AssertExpectations(t)
}

func TestCreateEventFirstID(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("LastEventID", mock.Anything).Return("", nil)
	mockDB.On("InsertEvent", mock.Anything, mock.MatchedBy(func(e *models.Event) bool {
		return e.EventID == "E00001"
	})).Return(nil)

	svc := catalog.NewService(mockDB, nil)

	created, err := svc.CreateEvent(context.Background(), draftEvent())
	assert.NoError(t, err)
	assert.Equal(t, "E00001", created.EventID)
}

func TestCreateEventDerivesStatus(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("LastEventID", mock.Anything).Return("", nil)
	mockDB.On("InsertEvent", mock.Anything, mock.Anything).Return(nil)

	svc := catalog.NewService(mockDB, nil)

	// Incomplete listing stays DRAFT.
	created, err := svc.CreateEvent(context.Background(), draftEvent())
	assert.NoError(t, err)
	assert.Equal(t, models.EventDraft, created.Status)

	// Category, image and description present: UPLOADED.
	complete := draftEvent()
	complete.Image = "https://example.com/fest.jpg"
	complete.Description = "Annual festival"
	created, err = svc.CreateEvent(context.Background(), complete)
	assert.NoError(t, err)
	assert.Equal(t, models.EventUploaded, created.Status)
}

func TestCreateEventRetriesOnIDCollision(t *testing.T) {
	mockDB := new(MockDBLayer)

	// First attempt loses the id race; the sequence is re-read and the
	// insert retried with the fresh id.
	mockDB.On("LastEventID", mock.Anything).Return("E00007", nil).Once()
	mockDB.On("InsertEvent", mock.Anything, mock.MatchedBy(func(e *models.Event) bool {
		return e.EventID == "E00008"
	})).Return(errors.New("UNIQUE constraint failed: events.event_id")).Once()

	mockDB.On("LastEventID", mock.Anything).Return("E00008", nil).Once()
	mockDB.On("InsertEvent", mock.Anything, mock.MatchedBy(func(e *models.Event) bool {
		return e.EventID == "E00009"
	})).Return(nil).Once()

	svc := catalog.NewService(mockDB, nil)

	created, err := svc.CreateEvent(context.Background(), draftEvent())
	assert.NoError(t, err)
	assert.Equal(t, "E00009", created.EventID)
	mockDB.AssertExpectations(t)
}

func TestUpsertEventUpdatesExisting(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("EventExists", mock.Anything, "E00001").Return(true, nil)
	mockDB.On("UpdateEvent", mock.Anything, mock.Anything).Return(nil)

	svc := catalog.NewService(mockDB, nil)

	event := draftEvent()
	event.EventID = "E00001"
	_, created, err := svc.UpsertEvent(context.Background(), event)
	assert.NoError(t, err)
	assert.False(t, created)
	mockDB.AssertExpectations(t)
}

func TestUpsertEventCreatesUnknown(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("EventExists", mock.Anything, "E00055").Return(false, nil)
	mockDB.On("InsertEvent", mock.Anything, mock.MatchedBy(func(e *models.Event) bool {
		return e.EventID == "E00055" && e.Status == models.EventDraft
	})).Return(nil)

	svc := catalog.NewService(mockDB, nil)

	event := draftEvent()
	event.EventID = "E00055"
	stored, created, err := svc.UpsertEvent(context.Background(), event)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "E00055", stored.EventID)
}

func TestDeleteEventNotFound(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("EventExists", mock.Anything, "E99999").Return(false, nil)

	svc := catalog.NewService(mockDB, nil)

	err := svc.DeleteEvent(context.Background(), "E99999")
	assert.ErrorIs(t, err, catalog.ErrEventNotFound)
	mockDB.AssertNotCalled(t, "DeleteEvent", mock.Anything, mock.Anything)
}
