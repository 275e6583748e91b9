package inventory_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"ms-inventory/internal/auth"
	"ms-inventory/internal/catalog"
	"ms-inventory/internal/inventory"
	inventory_db "ms-inventory/internal/inventory/db"
	"ms-inventory/internal/logger"
	"ms-inventory/internal/models"
	"ms-inventory/internal/notifier"
)

type Handler struct {
	Inventory *inventory.Service
	Notifier  *notifier.Notifier
	Logger    *logger.Logger
}

func NewHandler(inventoryService *inventory.Service, soldOutNotifier *notifier.Notifier, log *logger.Logger) *Handler {
	return &Handler{
		Inventory: inventoryService,
		Notifier:  soldOutNotifier,
		Logger:    log,
	}
}

// BookOrCancel resolves a reservation intent into a batch of ticket
// transitions and reports the count actually affected.
func (h *Handler) BookOrCancel(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("BookOrCancel: failed to decode request body: %v", err))
		h.writeBookingResponse(w, models.BookingResponse{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	// The frontend sends the user id in the body; fall back to the
	// authenticated subject when it is omitted.
	if req.UserID == "" {
		req.UserID = auth.UserID(r.Context())
	}

	h.Logger.Info("API", fmt.Sprintf("BookOrCancel: %s %d %s tickets for event %s (user %s)",
		req.RequestType, req.TicketNumber, req.TicketType, req.EventID, req.UserID))

	var count int
	var err error
	var successMessage string

	switch req.RequestType {
	case models.RequestBook:
		count, err = h.Inventory.Book(r.Context(), req.UserID, req.EventID, req.TicketType, req.TicketNumber)
		successMessage = "Reservation successful"
	case models.RequestCancel:
		count, err = h.Inventory.Cancel(r.Context(), req.UserID, req.EventID, req.TicketType, req.TicketNumber)
		successMessage = "Cancellation successful"
	default:
		h.writeBookingResponse(w, models.BookingResponse{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Unknown request type %q", req.RequestType),
		})
		return
	}

	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("BookOrCancel: %s failed: %v", req.RequestType, err))
		h.writeBookingResponse(w, models.BookingResponse{
			Status:  bookingErrorStatus(err),
			Message: err.Error(),
		})
		return
	}

	h.writeBookingResponse(w, models.BookingResponse{
		Status:  http.StatusOK,
		Success: true,
		Count:   count,
		Message: successMessage,
	})
}

// bookingErrorStatus maps allocator failures onto the HTTP taxonomy:
// business-rule rejections are 400, unknown events 404, everything else
// (conflict budget exhausted, store faults) 500.
func bookingErrorStatus(err error) int {
	var limitErr *inventory.LimitExceededError
	switch {
	case errors.As(err, &limitErr),
		errors.Is(err, inventory.ErrValidation),
		errors.Is(err, inventory.ErrNoInventory),
		errors.Is(err, inventory.ErrNoTicketsToCancel):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrEventNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeBookingResponse(w http.ResponseWriter, resp models.BookingResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("BookOrCancel: failed to encode response: %v", err))
	}
}

// CreateTickets bulk-creates AVAILABLE tickets for an event (admin).
func (h *Handler) CreateTickets(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TicketNumber int               `json:"ticketNumber"`
		IDEvent      string            `json:"idEvent"`
		TicketType   models.TicketType `json:"ticket_type"`
		TicketPrice  *decimal.Decimal  `json:"ticketPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.TicketNumber == 0 || body.IDEvent == "" || body.TicketType == "" || body.TicketPrice == nil {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	created, err := h.Inventory.CreateTickets(r.Context(), body.IDEvent, body.TicketType, *body.TicketPrice, body.TicketNumber)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateTickets: %v", err))
		switch {
		case errors.Is(err, inventory.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, catalog.ErrEventNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to create tickets", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int{"created": created})
}

// DeleteTickets bulk-deletes AVAILABLE tickets for an event (admin).
// Strict: fewer available than requested is a 409, nothing is deleted.
func (h *Handler) DeleteTickets(w http.ResponseWriter, r *http.Request) {
	quantityParam := r.URL.Query().Get("ticketNumber")
	eventID := r.URL.Query().Get("event_id")
	ticketType := models.TicketType(r.URL.Query().Get("ticket_type"))

	if quantityParam == "" || eventID == "" {
		http.Error(w, "ticketNumber and event_id are required", http.StatusBadRequest)
		return
	}
	quantity, err := strconv.Atoi(quantityParam)
	if err != nil {
		http.Error(w, "ticketNumber must be a number", http.StatusBadRequest)
		return
	}

	deleted, remaining, err := h.Inventory.DeleteTickets(r.Context(), eventID, ticketType, quantity)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteTickets: %v", err))
		switch {
		case errors.Is(err, inventory.ErrInsufficientStock):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, inventory.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Failed to delete tickets", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"deletedCount": deleted,
		"remaining":    remaining,
	})
}

// ListTickets returns tickets matching the optional status/type/idEvent
// filters, or the aggregate SOLD count when no filter is given.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	ticketType := r.URL.Query().Get("type")
	eventID := r.URL.Query().Get("idEvent")

	w.Header().Set("Content-Type", "application/json")

	if status == "" && ticketType == "" && eventID == "" {
		sold, err := h.Inventory.CountSoldTickets(r.Context())
		if err != nil {
			h.Logger.Error("API", fmt.Sprintf("ListTickets: count failed: %v", err))
			http.Error(w, "Repository error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"ticketsNumber": sold})
		return
	}

	tickets, err := h.Inventory.ListTickets(r.Context(), inventory_db.TicketFilter{
		EventID: eventID,
		Type:    models.TicketType(ticketType),
		Status:  models.TicketStatus(status),
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTickets: %v", err))
		http.Error(w, "Repository error", http.StatusInternalServerError)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}

	json.NewEncoder(w).Encode(map[string][]models.Ticket{"tickets": tickets})
}

// ListAllTickets returns one newest-first page of every ticket (admin view).
func (h *Handler) ListAllTickets(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if err != nil || pageSize < 1 {
		pageSize = 10
	}

	tickets, total, err := h.Inventory.ListTicketsPage(r.Context(), page, pageSize)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListAllTickets: %v", err))
		http.Error(w, "Repository error", http.StatusInternalServerError)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}

	totalPages := (total + pageSize - 1) / pageSize

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tickets":     tickets,
		"totalPages":  totalPages,
		"currentPage": page,
	})
}

// DeleteTicket removes one unowned ticket by id (admin).
func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	err := h.Inventory.DeleteTicket(r.Context(), ticketID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteTicket: %v", err))
		switch {
		case errors.Is(err, inventory_db.ErrTicketNotFound):
			http.Error(w, "Ticket not found", http.StatusNotFound)
		case errors.Is(err, inventory.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Failed to delete ticket", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Ticket deleted"})
}

// UserTickets lists the tickets a user currently holds.
func (h *Handler) UserTickets(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	tickets, err := h.Inventory.GetTicketsByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UserTickets: %v", err))
		if errors.Is(err, inventory.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, "Repository error", http.StatusInternalServerError)
		}
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]models.Ticket{"tickets": tickets})
}

// AvailabilityCheck recounts an event's AVAILABLE tickets and publishes the
// sold-out broadcast when the count is zero.
func (h *Handler) AvailabilityCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EventID   string `json:"eventId"`
		EventName string `json:"eventName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.EventID == "" {
		http.Error(w, "eventId is required", http.StatusBadRequest)
		return
	}

	available, isFull := h.Notifier.CheckSoldOut(r.Context(), body.EventID, body.EventName)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"availableTickets": available,
		"isFull":           isFull,
	})
}
