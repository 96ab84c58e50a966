package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/campus-events/eventsvc/internal/model"
	"github.com/campus-events/eventsvc/internal/service"
)

// EventHandler holds the HTTP handlers for /events.
type EventHandler struct {
	svc *service.EventService
	log *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// CreateEvent handles POST /events
// Creates the event and, if absent, the creator named in the body.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Returns a JSON array of all events, empty when there are none.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/id/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), pathParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// FindByTitle handles GET /events/title/{title}
func (h *EventHandler) FindByTitle(w http.ResponseWriter, r *http.Request) {
	h.writeEvents(w, r)(h.svc.FindByTitle(r.Context(), pathParam(r, "title")))
}

// FindByLocation handles GET /events/location/{location}
func (h *EventHandler) FindByLocation(w http.ResponseWriter, r *http.Request) {
	h.writeEvents(w, r)(h.svc.FindByLocation(r.Context(), pathParam(r, "location")))
}

// FindByDate handles GET /events/date/{date}
// Accepts YYYY-MM-DD or an RFC 3339 timestamp; the UTC day is matched.
func (h *EventHandler) FindByDate(w http.ResponseWriter, r *http.Request) {
	h.writeEvents(w, r)(h.svc.FindByDate(r.Context(), pathParam(r, "date")))
}

// Upcoming handles GET /events/upcoming
func (h *EventHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	h.writeEvents(w, r)(h.svc.Upcoming(r.Context()))
}

// Past handles GET /events/past
func (h *EventHandler) Past(w http.ResponseWriter, r *http.Request) {
	h.writeEvents(w, r)(h.svc.Past(r.Context()))
}

// UpdateByID handles PUT /events/id/{id}
// Only the fields present in the body are changed.
func (h *EventHandler) UpdateByID(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	event, err := h.svc.UpdateByID(r.Context(), pathParam(r, "id"), req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateByTitle handles PUT /events/title/{title}
func (h *EventHandler) UpdateByTitle(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	event, err := h.svc.UpdateByTitle(r.Context(), pathParam(r, "title"), req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// DeleteByID handles DELETE /events/id/{id}
func (h *EventHandler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteByID(r.Context(), pathParam(r, "id")); err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "event deleted"})
}

// DeleteByTitle handles DELETE /events/title/{title}
func (h *EventHandler) DeleteByTitle(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteByTitle(r.Context(), pathParam(r, "title")); err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "event deleted"})
}

// JoinEvent handles POST /events/{id}/join
// The joining user is created if absent and consumes one slot.
func (h *EventHandler) JoinEvent(w http.ResponseWriter, r *http.Request) {
	var req model.JoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	event, err := h.svc.JoinEvent(r.Context(), pathParam(r, "id"), req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, model.JoinResponse{Message: "joined event", Event: event})
}

// LeaveEvent handles POST /events/{id}/leave
func (h *EventHandler) LeaveEvent(w http.ResponseWriter, r *http.Request) {
	var req model.LeaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	event, err := h.svc.LeaveEvent(r.Context(), pathParam(r, "id"), req.Identity)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, model.JoinResponse{Message: "left event", Event: event})
}

// writeEvents adapts a service search result to a response.
func (h *EventHandler) writeEvents(w http.ResponseWriter, r *http.Request) func([]model.Event, error) {
	return func(events []model.Event, err error) {
		if err != nil {
			fail(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}
