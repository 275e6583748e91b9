package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ms-inventory/internal/inventory/db"
	"ms-inventory/internal/logger"
	"ms-inventory/internal/models"
)

// maxTxRetries bounds transparent retries of transient store conflicts
// before an operation surfaces ErrConflict.
const maxTxRetries = 3

type StoreLayer interface {
	BookTickets(ctx context.Context, eventID string, ticketType models.TicketType, userID string, quantity int) (int, error)
	CancelTickets(ctx context.Context, eventID string, ticketType models.TicketType, userID string, quantity int) (int, error)
	CreateTickets(ctx context.Context, eventID string, ticketType models.TicketType, price decimal.Decimal, quantity int) (int, error)
	DeleteAvailableTickets(ctx context.Context, eventID string, ticketType models.TicketType, quantity int) (int, int, error)
	ListTickets(ctx context.Context, f db.TicketFilter) ([]models.Ticket, error)
	ListTicketsPage(ctx context.Context, page, pageSize int) ([]models.Ticket, int, error)
	CountTickets(ctx context.Context, f db.TicketFilter) (int, error)
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	DeleteTicket(ctx context.Context, id string) error
	GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error)
}

type CatalogLayer interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

// SoldOutNotifier recomputes availability after a booking and broadcasts
// when the event sold out. Best effort; never consulted for the result.
type SoldOutNotifier interface {
	CheckSoldOut(ctx context.Context, eventID, eventName string) (int, bool)
}

type EventPublisher interface {
	PublishBookingCompleted(event models.BookingEvent) error
	PublishBookingCancelled(event models.BookingEvent) error
	PublishTicketsCreated(event models.TicketBatchEvent) error
}

type Metrics interface {
	TrackAllocation(operation, eventID, status string)
	TrackDuration(operation string, d time.Duration)
}

// Service converts reservation intents into atomic batch ticket
// transitions, enforcing the event's booking limits.
type Service struct {
	Store    StoreLayer
	Catalog  CatalogLayer
	Kafka    EventPublisher
	Notifier SoldOutNotifier
	Metrics  Metrics
	Logger   *logger.Logger
}

func NewService(store StoreLayer, catalog CatalogLayer, kafka EventPublisher, notifier SoldOutNotifier, metrics Metrics, log *logger.Logger) *Service {
	return &Service{
		Store:    store,
		Catalog:  catalog,
		Kafka:    kafka,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   log,
	}
}

// Book transitions up to quantity AVAILABLE tickets of (event, type) to
// SOLD/owned-by-user. Fails hard only when zero tickets match; when fewer
// than quantity are available it books those and reports the actual count,
// which the caller reconciles against the request.
func (s *Service) Book(ctx context.Context, userID, eventID string, ticketType models.TicketType, quantity int) (int, error) {
	defer s.trackDuration("book", time.Now())

	if err := validateIntent(userID, eventID, ticketType, quantity); err != nil {
		return 0, err
	}

	event, err := s.Catalog.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}

	limit := event.LimitPerUserPerType()
	if quantity > limit {
		s.trackAllocation("book", eventID, "limit_exceeded")
		return 0, &LimitExceededError{Limit: limit}
	}

	booked, err := s.withRetry(func() (int, error) {
		return s.Store.BookTickets(ctx, eventID, ticketType, userID, quantity)
	})
	if err != nil {
		s.trackAllocation("book", eventID, "error")
		return 0, err
	}
	if booked == 0 {
		s.trackAllocation("book", eventID, "no_inventory")
		return 0, ErrNoInventory
	}

	s.logAllocation("BOOK", eventID, fmt.Sprintf("user %s booked %d/%d %s tickets", userID, booked, quantity, ticketType))
	s.trackAllocation("book", eventID, "success")

	s.publishBooking(models.BookingEvent{
		UserID:      userID,
		EventID:     eventID,
		TicketType:  ticketType,
		RequestType: models.RequestBook,
		Count:       booked,
		OccurredAt:  time.Now(),
	})
	s.notifySoldOut(event)

	return booked, nil
}

// Cancel transitions up to quantity of the user's SOLD tickets of
// (event, type) back to AVAILABLE. Fails with ErrNoTicketsToCancel when the
// user holds none.
func (s *Service) Cancel(ctx context.Context, userID, eventID string, ticketType models.TicketType, quantity int) (int, error) {
	defer s.trackDuration("cancel", time.Now())

	if err := validateIntent(userID, eventID, ticketType, quantity); err != nil {
		return 0, err
	}

	cancelled, err := s.withRetry(func() (int, error) {
		return s.Store.CancelTickets(ctx, eventID, ticketType, userID, quantity)
	})
	if err != nil {
		s.trackAllocation("cancel", eventID, "error")
		return 0, err
	}
	if cancelled == 0 {
		s.trackAllocation("cancel", eventID, "no_tickets")
		return 0, ErrNoTicketsToCancel
	}

	s.logAllocation("CANCEL", eventID, fmt.Sprintf("user %s cancelled %d %s tickets", userID, cancelled, ticketType))
	s.trackAllocation("cancel", eventID, "success")

	s.publishBooking(models.BookingEvent{
		UserID:      userID,
		EventID:     eventID,
		TicketType:  ticketType,
		RequestType: models.RequestCancel,
		Count:       cancelled,
		OccurredAt:  time.Now(),
	})

	return cancelled, nil
}

// CreateTickets generates quantity AVAILABLE tickets for the event at a
// fixed price. Id collisions from concurrent creators are resolved by the
// store's unique constraint plus a bounded retry here.
func (s *Service) CreateTickets(ctx context.Context, eventID string, ticketType models.TicketType, price decimal.Decimal, quantity int) (int, error) {
	defer s.trackDuration("create", time.Now())

	if eventID == "" {
		return 0, fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if !models.ValidTicketType(ticketType) {
		return 0, fmt.Errorf("%w: unknown ticket type %q", ErrValidation, ticketType)
	}
	if quantity < 1 {
		return 0, fmt.Errorf("%w: ticket number must be at least 1", ErrValidation)
	}
	if price.IsNegative() {
		return 0, fmt.Errorf("%w: ticket price must not be negative", ErrValidation)
	}

	if _, err := s.Catalog.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}

	var created int
	var err error
	for attempt := 0; ; attempt++ {
		created, err = s.Store.CreateTickets(ctx, eventID, ticketType, price, quantity)
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err) && attempt < maxTxRetries {
			s.logWarn("ALLOCATOR", fmt.Sprintf("ticket id collision for event %s, retrying (attempt %d)", eventID, attempt+1))
			continue
		}
		s.trackAllocation("create", eventID, "error")
		return 0, fmt.Errorf("create tickets: %w", err)
	}

	s.logAllocation("CREATE", eventID, fmt.Sprintf("created %d %s tickets", created, ticketType))
	s.trackAllocation("create", eventID, "success")

	s.publishTickets(models.TicketBatchEvent{
		EventID:    eventID,
		TicketType: ticketType,
		Count:      created,
		Price:      price,
		OccurredAt: time.Now(),
	})

	return created, nil
}

// DeleteTickets removes exactly quantity AVAILABLE tickets for the event,
// optionally restricted to one type. Strict: short stock fails the whole
// operation. Returns the deleted count and the remaining stock.
func (s *Service) DeleteTickets(ctx context.Context, eventID string, ticketType models.TicketType, quantity int) (int, int, error) {
	defer s.trackDuration("delete", time.Now())

	if eventID == "" {
		return 0, 0, fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if quantity < 1 {
		return 0, 0, fmt.Errorf("%w: ticket number must be at least 1", ErrValidation)
	}
	if ticketType != "" && !models.ValidTicketType(ticketType) {
		return 0, 0, fmt.Errorf("%w: unknown ticket type %q", ErrValidation, ticketType)
	}

	deleted, remaining, err := s.Store.DeleteAvailableTickets(ctx, eventID, ticketType, quantity)
	if err != nil {
		if errors.Is(err, db.ErrInsufficientStock) {
			s.trackAllocation("delete", eventID, "insufficient_stock")
			return 0, 0, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		s.trackAllocation("delete", eventID, "error")
		return 0, 0, err
	}

	s.logAllocation("DELETE", eventID, fmt.Sprintf("deleted %d tickets, %d remaining", deleted, remaining))
	s.trackAllocation("delete", eventID, "success")
	return deleted, remaining, nil
}

// DeleteTicket removes a single ticket; owned tickets cannot be deleted.
func (s *Service) DeleteTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.Store.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.UserID != nil {
		return fmt.Errorf("%w: ticket %s is assigned to a user", ErrValidation, ticketID)
	}
	return s.Store.DeleteTicket(ctx, ticketID)
}

// ListTickets returns tickets matching the filter.
func (s *Service) ListTickets(ctx context.Context, f db.TicketFilter) ([]models.Ticket, error) {
	return s.Store.ListTickets(ctx, f)
}

// ListTicketsPage returns one newest-first page plus the total count.
func (s *Service) ListTicketsPage(ctx context.Context, page, pageSize int) ([]models.Ticket, int, error) {
	return s.Store.ListTicketsPage(ctx, page, pageSize)
}

// CountSoldTickets returns the total number of SOLD tickets.
func (s *Service) CountSoldTickets(ctx context.Context) (int, error) {
	return s.Store.CountTickets(ctx, db.TicketFilter{Status: models.TicketSold})
}

// GetTicketsByUser returns the tickets a user currently holds.
func (s *Service) GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return s.Store.GetTicketsByUser(ctx, userID)
}

func validateIntent(userID, eventID string, ticketType models.TicketType, quantity int) error {
	if userID == "" || eventID == "" {
		return fmt.Errorf("%w: user id and event id are required", ErrValidation)
	}
	if !models.ValidTicketType(ticketType) {
		return fmt.Errorf("%w: unknown ticket type %q", ErrValidation, ticketType)
	}
	if quantity < 1 {
		return fmt.Errorf("%w: ticket number must be at least 1", ErrValidation)
	}
	return nil
}

// withRetry retries transient store conflicts up to maxTxRetries before
// surfacing ErrConflict.
func (s *Service) withRetry(op func() (int, error)) (int, error) {
	var count int
	var err error
	for attempt := 0; ; attempt++ {
		count, err = op()
		if err == nil {
			return count, nil
		}
		if db.IsConflict(err) && attempt < maxTxRetries {
			s.logWarn("ALLOCATOR", fmt.Sprintf("transaction conflict, retrying (attempt %d)", attempt+1))
			continue
		}
		if db.IsConflict(err) {
			return 0, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return 0, err
	}
}

// notifySoldOut triggers the availability recount after a committed booking.
// Decoupled from the caller: runs in its own goroutine with its own timeout
// and never influences the booking result.
func (s *Service) notifySoldOut(event *models.Event) {
	if s.Notifier == nil {
		return
	}
	eventID, eventName := event.EventID, event.Name
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Notifier.CheckSoldOut(ctx, eventID, eventName)
	}()
}

func (s *Service) publishBooking(event models.BookingEvent) {
	if s.Kafka == nil {
		return
	}
	event.AllocationID = uuid.NewString()
	var err error
	if event.RequestType == models.RequestBook {
		err = s.Kafka.PublishBookingCompleted(event)
	} else {
		err = s.Kafka.PublishBookingCancelled(event)
	}
	if err != nil {
		s.logWarn("KAFKA", fmt.Sprintf("failed to publish booking event for %s: %v", event.EventID, err))
	}
}

func (s *Service) publishTickets(event models.TicketBatchEvent) {
	if s.Kafka == nil {
		return
	}
	if err := s.Kafka.PublishTicketsCreated(event); err != nil {
		s.logWarn("KAFKA", fmt.Sprintf("failed to publish ticket batch event for %s: %v", event.EventID, err))
	}
}

func (s *Service) trackAllocation(operation, eventID, status string) {
	if s.Metrics != nil {
		s.Metrics.TrackAllocation(operation, eventID, status)
	}
}

func (s *Service) trackDuration(operation string, start time.Time) {
	if s.Metrics != nil {
		s.Metrics.TrackDuration(operation, time.Since(start))
	}
}

func (s *Service) logAllocation(operation, eventID, message string) {
	if s.Logger != nil {
		s.Logger.LogAllocation(operation, eventID, message)
	}
}

func (s *Service) logWarn(category, message string) {
	if s.Logger != nil {
		s.Logger.Warn(category, message)
	}
}
