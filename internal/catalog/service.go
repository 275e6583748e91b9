package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ms-inventory/internal/catalog/db"
	"ms-inventory/internal/logger"
	"ms-inventory/internal/models"
)

// ErrEventNotFound is returned when an event id does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrMissingFields is returned when a created event lacks required fields.
var ErrMissingFields = errors.New("event name, place, category and date are required")

// maxIDRetries bounds sequence-id regeneration when concurrent creators
// collide on the unique event id.
const maxIDRetries = 3

type DBLayer interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	EventExists(ctx context.Context, id string) (bool, error)
	ListEvents(ctx context.Context, status models.EventStatus, page int) ([]models.Event, error)
	LastEventID(ctx context.Context) (string, error)
	InsertEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// Service is the read-mostly event catalog consulted by the allocator for
// event existence and booking limits, plus the administrative CRUD surface.
type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(dbLayer DBLayer, log *logger.Logger) *Service {
	return &Service{DB: dbLayer, Logger: log}
}

// GetEvent fetches an event or ErrEventNotFound.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return event, nil
}

// EventExists reports whether an event id exists.
func (s *Service) EventExists(ctx context.Context, eventID string) (bool, error) {
	return s.DB.EventExists(ctx, eventID)
}

// ListEvents returns one page of events, optionally filtered by status.
func (s *Service) ListEvents(ctx context.Context, status models.EventStatus, page int) ([]models.Event, error) {
	return s.DB.ListEvents(ctx, status, page)
}

// CreateEvent assigns the next "E<seq>" identifier and derives the status
// from field completeness. The sequence is re-read and the insert retried
// when a concurrent creator wins the id.
func (s *Service) CreateEvent(ctx context.Context, event models.Event) (*models.Event, error) {
	if event.Name == "" || event.Place == "" || event.Category == "" || event.Date.IsZero() {
		return nil, ErrMissingFields
	}

	event.Status = event.DeriveStatus()
	event.CreatedAt = time.Now()

	for attempt := 0; ; attempt++ {
		lastID, err := s.DB.LastEventID(ctx)
		if err != nil {
			return nil, fmt.Errorf("read last event id: %w", err)
		}
		event.EventID = nextEventID(lastID)

		err = s.DB.InsertEvent(ctx, &event)
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err) && attempt < maxIDRetries {
			if s.Logger != nil {
				s.Logger.Warn("CATALOG", fmt.Sprintf("event id %s already taken, regenerating (attempt %d)", event.EventID, attempt+1))
			}
			continue
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("CATALOG", fmt.Sprintf("created event %s (%s)", event.EventID, event.Status))
	}
	return &event, nil
}

// UpsertEvent updates an existing event or, mirroring the frontend PUT
// contract, creates it verbatim when the id is unknown. Returns the stored
// event and whether it was newly created.
func (s *Service) UpsertEvent(ctx context.Context, event models.Event) (*models.Event, bool, error) {
	exists, err := s.DB.EventExists(ctx, event.EventID)
	if err != nil {
		return nil, false, err
	}
	if exists {
		if err := s.DB.UpdateEvent(ctx, &event); err != nil {
			return nil, false, fmt.Errorf("update event %s: %w", event.EventID, err)
		}
		return &event, false, nil
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.Status == "" {
		event.Status = event.DeriveStatus()
	}
	if err := s.DB.InsertEvent(ctx, &event); err != nil {
		return nil, false, fmt.Errorf("insert event %s: %w", event.EventID, err)
	}
	return &event, true, nil
}

// DeleteEvent removes an event; ErrEventNotFound when absent.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) error {
	exists, err := s.DB.EventExists(ctx, eventID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrEventNotFound
	}
	return s.DB.DeleteEvent(ctx, eventID)
}

// nextEventID derives the next monotonically assigned event identifier,
// "E" plus a zero-padded five digit sequence.
func nextEventID(lastID string) string {
	seq := 1
	if lastID != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(lastID, "E")); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("E%05d", seq)
}
