package event_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-inventory/internal/catalog"
	"ms-inventory/internal/logger"
	"ms-inventory/internal/models"
	"ms-inventory/internal/utils"
)

type Handler struct {
	Catalog *catalog.Service
	Logger  *logger.Logger
}

func NewHandler(catalogService *catalog.Service, log *logger.Logger) *Handler {
	return &Handler{Catalog: catalogService, Logger: log}
}

// ListEvents returns one page of events, optionally filtered by status.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	status := models.EventStatus(r.URL.Query().Get("status"))
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	events, err := h.Catalog.ListEvents(r.Context(), status, page)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEvents: %v", err))
		http.Error(w, "Repository error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]models.Event{"events": events})
}

// GetEvent fetches a single event by id.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	event, err := h.Catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, catalog.ErrEventNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetEvent %s: %v", eventID, err))
		http.Error(w, "Repository error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// CreateEvent creates an event with a server-assigned id. The status is
// derived from field completeness, not taken from the request.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	created, err := h.Catalog.CreateEvent(r.Context(), event)
	if err != nil {
		if errors.Is(err, catalog.ErrMissingFields) {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Missing required fields", err.Error()))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to create event", err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", created))
}

// UpsertEvent updates the event at the given id, creating it when unknown.
func (h *Handler) UpsertEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	event.EventID = eventID

	stored, created, err := h.Catalog.UpsertEvent(r.Context(), event)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpsertEvent %s: %v", eventID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to save event", err.Error()))
		return
	}

	status := http.StatusOK
	message := "Event updated"
	if created {
		status = http.StatusCreated
		message = "Event created"
	}
	writeJSON(w, status, utils.SuccessResponse(message, stored))
}

// DeleteEvent removes an event by id.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	if err := h.Catalog.DeleteEvent(r.Context(), eventID); err != nil {
		if errors.Is(err, catalog.ErrEventNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Event not found", err.Error()))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("DeleteEvent %s: %v", eventID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to delete event", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Event deleted", nil))
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
