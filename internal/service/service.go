// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the stores. It keeps the user and event documents
// pointing at each other as events are created, joined and left.
package service

import (
	"context"
	"time"

	"github.com/campus-events/eventsvc/internal/model"
)

// UserStore persists users. Array mutations must be idempotent.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByGNumberAndEmail(ctx context.Context, gNumber, email string) (*model.User, error)
	AddCreatedEvent(ctx context.Context, userID, eventID string) error
	AddJoinedEvent(ctx context.Context, userID, eventID string) error
	RemoveJoinedEvent(ctx context.Context, userID, eventID string) error
}

// EventStore persists events. Update must reject a stale Version with a
// Conflict error.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	FindByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Event, error)
	FindByTitle(ctx context.Context, term string) ([]model.Event, error)
	FindByLocation(ctx context.Context, term string) ([]model.Event, error)
	FindByDate(ctx context.Context, day time.Time) ([]model.Event, error)
	FindUpcoming(ctx context.Context, now time.Time) ([]model.Event, error)
	FindPast(ctx context.Context, now time.Time) ([]model.Event, error)
	FindOneByTitle(ctx context.Context, title string) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByTitle(ctx context.Context, title string) error
}

const (
	// maxUpdateAttempts bounds optimistic-concurrency retries per request.
	maxUpdateAttempts = 5
	// findOrCreateTimeout bounds a coalesced find-or-create shared by
	// several requests.
	findOrCreateTimeout = 10 * time.Second
)
