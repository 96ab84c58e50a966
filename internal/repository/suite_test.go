package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-events/eventsvc/internal/apperr"
	"github.com/campus-events/eventsvc/internal/model"
)

type userStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByGNumberAndEmail(ctx context.Context, gNumber, email string) (*model.User, error)
	AddCreatedEvent(ctx context.Context, userID, eventID string) error
	AddJoinedEvent(ctx context.Context, userID, eventID string) error
	RemoveJoinedEvent(ctx context.Context, userID, eventID string) error
}

type eventStore interface {
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

func titles(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Title)
	}
	return out
}

// runStoreSuite exercises behavior every backend must share. It expects
// empty stores.
func runStoreSuite(t *testing.T, users userStore, events eventStore) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		u := &model.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.edu", GNumber: "12345678"}
		require.NoError(t, users.Create(ctx, u))
		require.NotEmpty(t, u.ID)

		got, err := users.FindByGNumberAndEmail(ctx, "12345678", "ADA@example.edu")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Empty(t, got.CreatedEvents)

		_, err = users.FindByGNumberAndEmail(ctx, "12345678", "other@example.edu")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		dupEmail := &model.User{FirstName: "A", LastName: "B", Email: "ada@example.edu", GNumber: "87654321"}
		assert.ErrorIs(t, users.Create(ctx, dupEmail), apperr.ErrDuplicateKey)
		dupG := &model.User{FirstName: "A", LastName: "B", Email: "b@example.edu", GNumber: "12345678"}
		assert.ErrorIs(t, users.Create(ctx, dupG), apperr.ErrDuplicateKey)

		require.NoError(t, users.AddCreatedEvent(ctx, u.ID, "e1"))
		require.NoError(t, users.AddCreatedEvent(ctx, u.ID, "e1"))
		require.NoError(t, users.AddJoinedEvent(ctx, u.ID, "e2"))
		require.NoError(t, users.AddJoinedEvent(ctx, u.ID, "e3"))
		require.NoError(t, users.RemoveJoinedEvent(ctx, u.ID, "e2"))
		require.NoError(t, users.RemoveJoinedEvent(ctx, u.ID, "e2"))

		got, err = users.FindByGNumberAndEmail(ctx, "12345678", "ada@example.edu")
		require.NoError(t, err)
		assert.Equal(t, []string{"e1"}, got.CreatedEvents)
		assert.Equal(t, []string{"e3"}, got.EventsJoined)

		assert.ErrorIs(t, users.AddJoinedEvent(ctx, "missing", "e1"), apperr.ErrNotFound)
	})

	t.Run("events", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		day := time.Date(2031, 3, 14, 0, 0, 0, 0, time.UTC)
		mk := func(title, location string, date time.Time) *model.Event {
			e := &model.Event{Title: title, Description: "d", Location: location, Date: date, Creator: "u1", Slots: 2}
			require.NoError(t, events.Create(ctx, e))
			require.Equal(t, int64(1), e.Version)
			return e
		}
		run := mk("Morning Run", "North Field", day.Add(9*time.Hour))
		club := mk("Running Club", "Gym", day.Add(18*time.Hour))
		chess := mk("Chess Night", "Library Annex", now.Add(-48*time.Hour))
		mk("C++ (Intro)", "Lab 1", day.AddDate(0, 0, 1))

		got, err := events.FindByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "Morning Run", got.Title)
		assert.True(t, run.Date.Equal(got.Date))
		assert.Empty(t, got.UsersJoined)

		_, err = events.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		all, err := events.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Chess Night", "Morning Run", "Running Club", "C++ (Intro)"}, titles(all))

		byTitle, err := events.FindByTitle(ctx, "run")
		require.NoError(t, err)
		assert.Equal(t, []string{"Morning Run"}, titles(byTitle))

		byTitle, err = events.FindByTitle(ctx, "C++")
		require.NoError(t, err)
		assert.Equal(t, []string{"C++ (Intro)"}, titles(byTitle))

		byLoc, err := events.FindByLocation(ctx, "library")
		require.NoError(t, err)
		assert.Equal(t, []string{"Chess Night"}, titles(byLoc))

		byLoc, err = events.FindByLocation(ctx, "Lib")
		require.NoError(t, err)
		assert.Empty(t, byLoc)

		byDate, err := events.FindByDate(ctx, day.Add(13*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"Morning Run", "Running Club"}, titles(byDate))

		past, err := events.FindPast(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, []string{"Chess Night"}, titles(past))

		upcoming, err := events.FindUpcoming(ctx, now)
		require.NoError(t, err)
		assert.Len(t, upcoming, 3)

		ids, err := events.FindByIDs(ctx, []string{club.ID, "gone", run.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"Running Club", "Morning Run"}, titles(ids))

		one, err := events.FindOneByTitle(ctx, "chess night")
		require.NoError(t, err)
		assert.Equal(t, chess.ID, one.ID)

		// Version guard: the second writer holding the old version loses.
		first, err := events.FindByID(ctx, run.ID)
		require.NoError(t, err)
		second, err := events.FindByID(ctx, run.ID)
		require.NoError(t, err)

		first.Join("u9")
		require.NoError(t, events.Update(ctx, first))
		assert.Equal(t, int64(2), first.Version)

		second.Join("u8")
		assert.ErrorIs(t, events.Update(ctx, second), apperr.ErrConflict)

		stored, err := events.FindByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"u9"}, stored.UsersJoined)
		assert.Equal(t, 1, stored.Slots)
		assert.Equal(t, int64(2), stored.Version)

		ghost := &model.Event{ID: "ghost", Version: 1}
		assert.ErrorIs(t, events.Update(ctx, ghost), apperr.ErrNotFound)

		require.NoError(t, events.DeleteByTitle(ctx, "C++ (intro)"))
		assert.ErrorIs(t, events.DeleteByTitle(ctx, "C++ (intro)"), apperr.ErrNotFound)
		require.NoError(t, events.DeleteByID(ctx, club.ID))
		assert.ErrorIs(t, events.DeleteByID(ctx, club.ID), apperr.ErrNotFound)
	})
}

func TestMemoryStores(t *testing.T) {
	runStoreSuite(t, NewMemoryUserRepository(), NewMemoryEventRepository())
}

func TestWordPattern(t *testing.T) {
	m := wordMatcher("Run")
	assert.True(t, m.MatchString("Morning run"))
	assert.True(t, m.MatchString("RUN!"))
	assert.False(t, m.MatchString("Running Club"))
	assert.False(t, m.MatchString("Rerun"))

	assert.True(t, wordMatcher("C++").MatchString("Intro to c++"))
	assert.False(t, wordMatcher("C++").MatchString("C++X"))
	assert.Equal(t, `(?:^|[^[:alnum:]_])C\+\+(?:[^[:alnum:]_]|$)`, wordPattern(" C++ "))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	start, end := dayBounds(time.Date(2030, 1, 1, 22, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2030, 1, 3, 0, 0, 0, 0, time.UTC), end)
}
