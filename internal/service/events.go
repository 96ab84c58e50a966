package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-events/eventsvc/internal/apperr"
	"github.com/campus-events/eventsvc/internal/metrics"
	"github.com/campus-events/eventsvc/internal/model"
)

// EventService orchestrates event operations and keeps User.createdEvents,
// User.eventsJoined and Event.usersJoined consistent.
//
// The two collections are written one after the other without a shared
// transaction. A failure on the second write returns PartialUpdate, and
// every operation repairs the user side when it finds the event side already
// applied, so retrying a failed request converges.
type EventService struct {
	events EventStore
	users  UserStore
	people *UserService
	log    *zap.Logger
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, users UserStore, people *UserService, log *zap.Logger) *EventService {
	return &EventService{
		events: events,
		users:  users,
		people: people,
		log:    log,
		now:    time.Now,
	}
}

// CreateEvent validates the request, finds or creates the creator and
// records the new event on the creator's createdEvents.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	date, err := req.Validate()
	if err != nil {
		return nil, err
	}
	creator, err := s.people.FindOrCreate(ctx, req.Creator())
	if err != nil {
		return nil, err
	}

	event := &model.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Creator:     creator.ID,
		UsersJoined: []string{},
		Slots:       req.Slots,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	if err := s.users.AddCreatedEvent(ctx, creator.ID, event.ID); err != nil {
		return nil, s.partial("create", event.ID, creator.ID, err,
			"event created but not recorded on the creator")
	}
	s.log.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("creator", creator.ID),
		zap.Int("slots", event.Slots),
	)
	return event, nil
}

// JoinEvent adds the user named by req to the event, creating the user if
// needed, and consumes one slot.
func (s *EventService) JoinEvent(ctx context.Context, eventID string, req model.JoinRequest) (*model.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var user *model.User
	for attempt := 1; ; attempt++ {
		event, err := s.events.FindByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if event.IsFull() {
			return nil, apperr.NoCapacity("no slots available for this event")
		}
		if user == nil {
			if user, err = s.people.FindOrCreate(ctx, req); err != nil {
				return nil, err
			}
		}
		if event.HasJoined(user.ID) {
			s.repair(ctx, "join", event.ID, user.ID, s.users.AddJoinedEvent)
			return nil, apperr.AlreadyJoined("user has already joined this event")
		}

		event.Join(user.ID)
		if err := s.events.Update(ctx, event); err != nil {
			if s.retryable(err, attempt) {
				continue
			}
			return nil, err
		}

		if err := s.users.AddJoinedEvent(ctx, user.ID, event.ID); err != nil {
			return nil, s.partial("join", event.ID, user.ID, err,
				"joined the event but it was not recorded on the user")
		}
		metrics.Membership.WithLabelValues("join").Inc()
		s.log.Info("event joined",
			zap.String("event_id", event.ID),
			zap.String("user_id", user.ID),
			zap.Int("slots", event.Slots),
		)
		return event, nil
	}
}

// LeaveEvent removes the user from the event and returns its slot.
func (s *EventService) LeaveEvent(ctx context.Context, eventID string, id model.Identity) (*model.Event, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		event, err := s.events.FindByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		user, err := s.people.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		if !event.HasJoined(user.ID) {
			s.repair(ctx, "leave", event.ID, user.ID, s.users.RemoveJoinedEvent)
			return nil, apperr.NotJoined("user has not joined this event")
		}

		event.Leave(user.ID)
		if err := s.events.Update(ctx, event); err != nil {
			if s.retryable(err, attempt) {
				continue
			}
			return nil, err
		}

		if err := s.users.RemoveJoinedEvent(ctx, user.ID, event.ID); err != nil {
			return nil, s.partial("leave", event.ID, user.ID, err,
				"left the event but it was not removed from the user")
		}
		metrics.Membership.WithLabelValues("leave").Inc()
		s.log.Info("event left",
			zap.String("event_id", event.ID),
			zap.String("user_id", user.ID),
			zap.Int("slots", event.Slots),
		)
		return event, nil
	}
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("event id is required")
	}
	return s.events.FindByID(ctx, id)
}

// FindByTitle returns events whose title contains term as a whole word.
func (s *EventService) FindByTitle(ctx context.Context, term string) ([]model.Event, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperr.Validation("title is required")
	}
	events, err := s.events.FindByTitle(ctx, term)
	return nonEmpty(events, err, "no events found with the specified title")
}

// FindByLocation returns events whose location contains term as a whole word.
func (s *EventService) FindByLocation(ctx context.Context, term string) ([]model.Event, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperr.Validation("location is required")
	}
	events, err := s.events.FindByLocation(ctx, term)
	return nonEmpty(events, err, "no events found at the specified location")
}

// FindByDate returns events on the calendar day named by date.
func (s *EventService) FindByDate(ctx context.Context, date string) ([]model.Event, error) {
	day, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	events, err := s.events.FindByDate(ctx, day)
	return nonEmpty(events, err, "no events found on the specified date")
}

// Upcoming returns events dated now or later.
func (s *EventService) Upcoming(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.FindUpcoming(ctx, s.now())
	return nonEmpty(events, err, "no upcoming events")
}

// Past returns events dated before now.
func (s *EventService) Past(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.FindPast(ctx, s.now())
	return nonEmpty(events, err, "no past events found")
}

// UpdateByID merges req into the event with the given id.
func (s *EventService) UpdateByID(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	return s.update(ctx, req, func() (*model.Event, error) { return s.events.FindByID(ctx, id) })
}

// UpdateByTitle merges req into the oldest event titled title.
func (s *EventService) UpdateByTitle(ctx context.Context, title string, req model.UpdateEventRequest) (*model.Event, error) {
	return s.update(ctx, req, func() (*model.Event, error) { return s.events.FindOneByTitle(ctx, title) })
}

func (s *EventService) update(ctx context.Context, req model.UpdateEventRequest, load func() (*model.Event, error)) (*model.Event, error) {
	for attempt := 1; ; attempt++ {
		event, err := load()
		if err != nil {
			return nil, err
		}
		if err := req.Apply(event); err != nil {
			return nil, err
		}
		if err := s.events.Update(ctx, event); err != nil {
			if s.retryable(err, attempt) {
				continue
			}
			return nil, err
		}
		return event, nil
	}
}

// DeleteByID deletes one event. References held by users are left in place
// and skipped when listed.
func (s *EventService) DeleteByID(ctx context.Context, id string) error {
	return s.events.DeleteByID(ctx, id)
}

// DeleteByTitle deletes the oldest event titled title.
func (s *EventService) DeleteByTitle(ctx context.Context, title string) error {
	return s.events.DeleteByTitle(ctx, title)
}

// retryable reports whether a failed versioned update should be retried.
func (s *EventService) retryable(err error, attempt int) bool {
	if !errors.Is(err, apperr.ErrConflict) {
		return false
	}
	metrics.VersionConflicts.Inc()
	if attempt >= maxUpdateAttempts {
		s.log.Warn("giving up after version conflicts", zap.Int("attempts", attempt))
		return false
	}
	return true
}

// repair re-applies the user side of a membership change that the event
// side already reflects. Errors are logged, not returned.
func (s *EventService) repair(ctx context.Context, op, eventID, userID string, fix func(context.Context, string, string) error) {
	if err := fix(ctx, userID, eventID); err != nil {
		s.log.Warn("membership repair failed",
			zap.String("op", op),
			zap.String("event_id", eventID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *EventService) partial(op, eventID, userID string, err error, msg string) error {
	metrics.PartialUpdates.WithLabelValues(op).Inc()
	s.log.Error("relationship update left half applied",
		zap.String("op", op),
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
		zap.Error(err),
	)
	return apperr.PartialUpdate(msg+"; retry to reconcile", err)
}

// nonEmpty turns an empty search result into NotFound with the given message.
func nonEmpty(events []model.Event, err error, msg string) ([]model.Event, error) {
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperr.NotFound(msg)
	}
	return events, nil
}
