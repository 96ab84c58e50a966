package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap/zaptest"

	"github.com/campus-events/eventsvc/internal/model"
	"github.com/campus-events/eventsvc/internal/repository"
)

// FakeUserStore wraps the in-memory repository; a non-nil Fn field replaces
// the corresponding method.
type FakeUserStore struct {
	*repository.MemoryUserRepository

	FindByGNumberAndEmailFn func(ctx context.Context, gNumber, email string) (*model.User, error)
	AddCreatedEventFn       func(ctx context.Context, userID, eventID string) error
	AddJoinedEventFn        func(ctx context.Context, userID, eventID string) error
	RemoveJoinedEventFn     func(ctx context.Context, userID, eventID string) error
}

func (f *FakeUserStore) FindByGNumberAndEmail(ctx context.Context, gNumber, email string) (*model.User, error) {
	if f.FindByGNumberAndEmailFn != nil {
		return f.FindByGNumberAndEmailFn(ctx, gNumber, email)
	}
	return f.MemoryUserRepository.FindByGNumberAndEmail(ctx, gNumber, email)
}

func (f *FakeUserStore) AddCreatedEvent(ctx context.Context, userID, eventID string) error {
	if f.AddCreatedEventFn != nil {
		return f.AddCreatedEventFn(ctx, userID, eventID)
	}
	return f.MemoryUserRepository.AddCreatedEvent(ctx, userID, eventID)
}

func (f *FakeUserStore) AddJoinedEvent(ctx context.Context, userID, eventID string) error {
	if f.AddJoinedEventFn != nil {
		return f.AddJoinedEventFn(ctx, userID, eventID)
	}
	return f.MemoryUserRepository.AddJoinedEvent(ctx, userID, eventID)
}

func (f *FakeUserStore) RemoveJoinedEvent(ctx context.Context, userID, eventID string) error {
	if f.RemoveJoinedEventFn != nil {
		return f.RemoveJoinedEventFn(ctx, userID, eventID)
	}
	return f.MemoryUserRepository.RemoveJoinedEvent(ctx, userID, eventID)
}

// FakeEventStore wraps the in-memory repository with an Update hook.
type FakeEventStore struct {
	*repository.MemoryEventRepository

	UpdateFn func(ctx context.Context, e *model.Event) error
}

func (f *FakeEventStore) Update(ctx context.Context, e *model.Event) error {
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, e)
	}
	return f.MemoryEventRepository.Update(ctx, e)
}

type testEnv struct {
	users    *FakeUserStore
	events   *FakeEventStore
	userSvc  *UserService
	eventSvc *EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	users := &FakeUserStore{MemoryUserRepository: repository.NewMemoryUserRepository()}
	events := &FakeEventStore{MemoryEventRepository: repository.NewMemoryEventRepository()}
	userSvc := NewUserService(users, events, log)
	return &testEnv{
		users:    users,
		events:   events,
		userSvc:  userSvc,
		eventSvc: NewEventService(events, users, userSvc, log),
	}
}

var (
	gNumberMu  sync.Mutex
	gNumberSeq = 10000000
)

// newPerson returns a valid signup payload with a unique gNumber.
func newPerson() model.SignupRequest {
	gNumberMu.Lock()
	gNumberSeq++
	g := fmt.Sprintf("%08d", gNumberSeq)
	gNumberMu.Unlock()
	return model.SignupRequest{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     g + "." + gofakeit.Email(),
		GNumber:   g,
	}
}

func chessNight(creator model.SignupRequest, slots int) model.CreateEventRequest {
	return model.CreateEventRequest{
		Title:       "Chess Night",
		Description: "Casual games, boards provided",
		Date:        "2031-01-15T19:00:00Z",
		Location:    "Student Union",
		Slots:       slots,
		FirstName:   creator.FirstName,
		LastName:    creator.LastName,
		Email:       creator.Email,
		GNumber:     creator.GNumber,
	}
}
