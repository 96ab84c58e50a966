package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-events/eventsvc/internal/apperr"
	"github.com/campus-events/eventsvc/internal/model"
)

// MemoryUserRepository keeps users in process memory. It backs the
// "memory" driver and the service tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

// NewMemoryUserRepository returns an empty user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*model.User)}
}

// Create inserts u. The gNumber and the email are each unique.
func (r *MemoryUserRepository) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperr.DuplicateKey("email already registered")
		}
		if existing.GNumber == u.GNumber {
			return apperr.DuplicateKey("gNumber already registered")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.CreatedEvents = orEmpty(u.CreatedEvents)
	u.EventsJoined = orEmpty(u.EventsJoined)
	r.users[u.ID] = u.Clone()
	return nil
}

// FindByGNumberAndEmail returns the user owning both identifiers.
func (r *MemoryUserRepository) FindByGNumberAndEmail(_ context.Context, gNumber, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = model.NormalizeEmail(email)
	for _, u := range r.users {
		if u.GNumber == gNumber && u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

// AddCreatedEvent appends eventID to the user's created events.
func (r *MemoryUserRepository) AddCreatedEvent(_ context.Context, userID, eventID string) error {
	return r.mutate(userID, func(u *model.User) {
		if !slices.Contains(u.CreatedEvents, eventID) {
			u.CreatedEvents = append(u.CreatedEvents, eventID)
		}
	})
}

// AddJoinedEvent records eventID as joined; repeats are no-ops.
func (r *MemoryUserRepository) AddJoinedEvent(_ context.Context, userID, eventID string) error {
	return r.mutate(userID, func(u *model.User) {
		if !slices.Contains(u.EventsJoined, eventID) {
			u.EventsJoined = append(u.EventsJoined, eventID)
		}
	})
}

// RemoveJoinedEvent drops eventID from the user's joined events.
func (r *MemoryUserRepository) RemoveJoinedEvent(_ context.Context, userID, eventID string) error {
	return r.mutate(userID, func(u *model.User) {
		out := u.EventsJoined[:0]
		for _, id := range u.EventsJoined {
			if id != eventID {
				out = append(out, id)
			}
		}
		u.EventsJoined = out
	})
}

func (r *MemoryUserRepository) mutate(userID string, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	fn(u)
	return nil
}

// MemoryEventRepository keeps events in process memory.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]*model.Event
}

// NewMemoryEventRepository returns an empty event store.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{events: make(map[string]*model.Event)}
}

// Create inserts e.
func (r *MemoryEventRepository) Create(_ context.Context, e *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.UsersJoined = orEmpty(e.UsersJoined)
	e.Version = 1
	r.events[e.ID] = e.Clone()
	return nil
}

// FindByID returns the event with id.
func (r *MemoryEventRepository) FindByID(_ context.Context, id string) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return nil, apperr.NotFound("event not found")
	}
	return e.Clone(), nil
}

// List returns every event.
func (r *MemoryEventRepository) List(_ context.Context) ([]model.Event, error) {
	return r.filter(func(*model.Event) bool { return true }), nil
}

// FindByIDs returns the events whose ids are in ids; unknown ids are skipped.
func (r *MemoryEventRepository) FindByIDs(_ context.Context, ids []string) ([]model.Event, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	found := r.filter(func(e *model.Event) bool {
		_, ok := want[e.ID]
		return ok
	})
	return orderByIDs(found, ids), nil
}

// FindByTitle returns events whose title contains term as a whole word.
func (r *MemoryEventRepository) FindByTitle(_ context.Context, term string) ([]model.Event, error) {
	m := wordMatcher(term)
	return r.filter(func(e *model.Event) bool { return m.MatchString(e.Title) }), nil
}

// FindByLocation returns events whose location contains term as a whole word.
func (r *MemoryEventRepository) FindByLocation(_ context.Context, term string) ([]model.Event, error) {
	m := wordMatcher(term)
	return r.filter(func(e *model.Event) bool { return m.MatchString(e.Location) }), nil
}

// FindByDate returns events held on the UTC day of day.
func (r *MemoryEventRepository) FindByDate(_ context.Context, day time.Time) ([]model.Event, error) {
	start, end := dayBounds(day)
	return r.filter(func(e *model.Event) bool {
		return !e.Date.Before(start) && e.Date.Before(end)
	}), nil
}

// FindUpcoming returns events dated at or after now.
func (r *MemoryEventRepository) FindUpcoming(_ context.Context, now time.Time) ([]model.Event, error) {
	return r.filter(func(e *model.Event) bool { return !e.Date.Before(now) }), nil
}

// FindPast returns events dated before now.
func (r *MemoryEventRepository) FindPast(_ context.Context, now time.Time) ([]model.Event, error) {
	return r.filter(func(e *model.Event) bool { return e.Date.Before(now) }), nil
}

// FindOneByTitle returns the oldest event whose title matches exactly, ignoring case.
func (r *MemoryEventRepository) FindOneByTitle(_ context.Context, title string) (*model.Event, error) {
	matches := r.filter(func(e *model.Event) bool { return strings.EqualFold(e.Title, strings.TrimSpace(title)) })
	if len(matches) == 0 {
		return nil, apperr.NotFound("event not found")
	}
	oldest := matches[0]
	for _, e := range matches[1:] {
		if e.CreatedAt.Before(oldest.CreatedAt) {
			oldest = e
		}
	}
	return &oldest, nil
}

// Update persists e if the stored version still equals e.Version.
func (r *MemoryEventRepository) Update(_ context.Context, e *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.events[e.ID]
	if !ok {
		return apperr.NotFound("event not found")
	}
	if cur.Version != e.Version {
		return apperr.Conflict("event was modified concurrently")
	}
	e.Version++
	next := e.Clone()
	next.Creator, next.CreatedAt = cur.Creator, cur.CreatedAt
	r.events[e.ID] = next
	return nil
}

// DeleteByID removes the event with id.
func (r *MemoryEventRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return apperr.NotFound("event not found")
	}
	delete(r.events, id)
	return nil
}

// DeleteByTitle removes the event FindOneByTitle would return.
func (r *MemoryEventRepository) DeleteByTitle(ctx context.Context, title string) error {
	e, err := r.FindOneByTitle(ctx, title)
	if err != nil {
		return err
	}
	return r.DeleteByID(ctx, e.ID)
}

func (r *MemoryEventRepository) filter(keep func(*model.Event) bool) []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []model.Event{}
	for _, e := range r.events {
		if keep(e) {
			out = append(out, *e.Clone())
		}
	}
	sortEvents(out)
	return out
}
