package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/campus-events/eventsvc/internal/model"
	"github.com/campus-events/eventsvc/internal/service"
)

// UserHandler holds the HTTP handlers for /users.
type UserHandler struct {
	svc *service.UserService
	log *zap.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// Signup handles POST /users/signup
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	user, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.SignupResponse{Message: "user created", User: user})
}

// CreatedEvents handles GET /users/{gNumber}/{email}/eventsCreated
func (h *UserHandler) CreatedEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.CreatedEvents(r.Context(), identity(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, model.CreatedEventsResponse{CreatedEvents: events})
}

// JoinedEvents handles GET /users/{gNumber}/{email}/eventsJoined
func (h *UserHandler) JoinedEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.JoinedEvents(r.Context(), identity(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, model.JoinedEventsResponse{EventsJoined: events})
}

func identity(r *http.Request) model.Identity {
	return model.Identity{GNumber: pathParam(r, "gNumber"), Email: pathParam(r, "email")}
}
