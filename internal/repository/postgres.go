package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-events/eventsvc/internal/apperr"
	"github.com/campus-events/eventsvc/internal/model"
)

const pgUniqueViolation = "23505"

// pgError maps a pgx error to an apperr kind. what names the failed step.
func pgError(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return apperr.DuplicateKey("email already registered")
		case strings.Contains(pgErr.ConstraintName, "g_number"):
			return apperr.DuplicateKey("gNumber already registered")
		}
		return apperr.DuplicateKey("duplicate key")
	}
	return apperr.Persistence(what, err)
}

// UserRepository handles persistence for users in PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u, assigning its id and creation time.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.CreatedEvents = orEmpty(u.CreatedEvents)
	u.EventsJoined = orEmpty(u.EventsJoined)

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, first_name, last_name, email, g_number, created_events, events_joined, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.GNumber, u.CreatedEvents, u.EventsJoined, u.CreatedAt,
	)
	if err != nil {
		return pgError("insert user", err)
	}
	return nil
}

// FindByGNumberAndEmail returns the user owning both keys or NotFound.
func (r *UserRepository) FindByGNumberAndEmail(ctx context.Context, gNumber, email string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, g_number, created_events, events_joined, created_at
		 FROM users WHERE g_number = $1 AND email = $2`,
		gNumber, model.NormalizeEmail(email),
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.GNumber, &u.CreatedEvents, &u.EventsJoined, &u.CreatedAt)
	if err != nil {
		return nil, pgError("user not found", err)
	}
	return &u, nil
}

// AddCreatedEvent appends eventID to created_events unless already present.
func (r *UserRepository) AddCreatedEvent(ctx context.Context, userID, eventID string) error {
	return r.exec(ctx, "add created event",
		`UPDATE users
		 SET created_events = CASE WHEN $2 = ANY(created_events) THEN created_events
		                           ELSE array_append(created_events, $2) END
		 WHERE id = $1`,
		userID, eventID)
}

// AddJoinedEvent appends eventID to events_joined unless already present.
func (r *UserRepository) AddJoinedEvent(ctx context.Context, userID, eventID string) error {
	return r.exec(ctx, "add joined event",
		`UPDATE users
		 SET events_joined = CASE WHEN $2 = ANY(events_joined) THEN events_joined
		                          ELSE array_append(events_joined, $2) END
		 WHERE id = $1`,
		userID, eventID)
}

// RemoveJoinedEvent removes every occurrence of eventID from events_joined.
func (r *UserRepository) RemoveJoinedEvent(ctx context.Context, userID, eventID string) error {
	return r.exec(ctx, "remove joined event",
		`UPDATE users SET events_joined = array_remove(events_joined, $2) WHERE id = $1`,
		userID, eventID)
}

func (r *UserRepository) exec(ctx context.Context, what, sql string, userID, eventID string) error {
	tag, err := r.db.Exec(ctx, sql, userID, eventID)
	if err != nil {
		return pgError(what, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// EventRepository handles persistence for events in PostgreSQL.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, date, location, creator, users_joined, slots, version, created_at`

// Create inserts e with version 1 and a generated id.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.UsersJoined = orEmpty(e.UsersJoined)
	e.Version = 1

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Title, e.Description, e.Date, e.Location, e.Creator, e.UsersJoined, e.Slots, e.Version, e.CreatedAt,
	)
	if err != nil {
		return pgError("insert event", err)
	}
	return nil
}

// FindByID returns a single event or NotFound.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, pgError("event not found", err)
	}
	return e, nil
}

// List returns all events ordered by date.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	return r.query(ctx, "list events", ``)
}

// FindByIDs returns the events with the given ids, in the order of ids.
func (r *EventRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Event, error) {
	if len(ids) == 0 {
		return []model.Event{}, nil
	}
	events, err := r.query(ctx, "get events by id", `WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return orderByIDs(events, ids), nil
}

// FindByTitle matches term as a whole word, ignoring case.
func (r *EventRepository) FindByTitle(ctx context.Context, term string) ([]model.Event, error) {
	return r.query(ctx, "find events by title", `WHERE title ~* $1`, wordPattern(term))
}

// FindByLocation matches term as a whole word, ignoring case.
func (r *EventRepository) FindByLocation(ctx context.Context, term string) ([]model.Event, error) {
	return r.query(ctx, "find events by location", `WHERE location ~* $1`, wordPattern(term))
}

// FindByDate returns events on the UTC calendar day of day.
func (r *EventRepository) FindByDate(ctx context.Context, day time.Time) ([]model.Event, error) {
	start, end := dayBounds(day)
	return r.query(ctx, "find events by date", `WHERE date >= $1 AND date < $2`, start, end)
}

// FindUpcoming returns events dated at or after now.
func (r *EventRepository) FindUpcoming(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.query(ctx, "find upcoming events", `WHERE date >= $1`, now)
}

// FindPast returns events dated before now.
func (r *EventRepository) FindPast(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.query(ctx, "find past events", `WHERE date < $1`, now)
}

// FindOneByTitle returns the oldest event whose title equals title, ignoring case.
func (r *EventRepository) FindOneByTitle(ctx context.Context, title string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE lower(title) = lower($1)
		 ORDER BY created_at ASC LIMIT 1`,
		strings.TrimSpace(title),
	))
	if err != nil {
		return nil, pgError("event not found", err)
	}
	return e, nil
}

// Update writes the mutable fields of e if the stored version still equals
// e.Version, and bumps the version. A lost race yields Conflict.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET title = $3, description = $4, date = $5, location = $6,
		     users_joined = $7, slots = $8, version = version + 1
		 WHERE id = $1 AND version = $2`,
		e.ID, e.Version, e.Title, e.Description, e.Date, e.Location, orEmpty(e.UsersJoined), e.Slots,
	)
	if err != nil {
		return pgError("update event", err)
	}
	if tag.RowsAffected() == 1 {
		e.Version++
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
		return pgError("check event", err)
	}
	if !exists {
		return apperr.NotFound("event not found")
	}
	return apperr.Conflict("event was modified concurrently")
}

// DeleteByID removes one event or returns NotFound.
func (r *EventRepository) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return pgError("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

// DeleteByTitle removes the oldest event whose title equals title, ignoring case.
func (r *EventRepository) DeleteByTitle(ctx context.Context, title string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM events WHERE id = (
		     SELECT id FROM events WHERE lower(title) = lower($1)
		     ORDER BY created_at ASC LIMIT 1)`,
		strings.TrimSpace(title),
	)
	if err != nil {
		return pgError("delete event by title", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

func (r *EventRepository) query(ctx context.Context, what, where string, args ...any) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM events %s ORDER BY date ASC, created_at ASC`, eventColumns, where),
		args...,
	)
	if err != nil {
		return nil, pgError(what, err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, pgError(what, err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError(what, err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Creator,
		&e.UsersJoined, &e.Slots, &e.Version, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
