package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campus-events/eventsvc/internal/apperr"
	"github.com/campus-events/eventsvc/internal/database"
	"github.com/campus-events/eventsvc/internal/model"
)

// mongoError maps a driver error to an apperr kind.
func mongoError(what string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(what)
	}
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "email"):
			return apperr.DuplicateKey("email already registered")
		case strings.Contains(msg, "gNumber"):
			return apperr.DuplicateKey("gNumber already registered")
		}
		return apperr.DuplicateKey("duplicate key")
	}
	return apperr.Persistence(what, err)
}

// MongoUserRepository stores users as documents in the users collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository returns a store backed by db's users collection.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(database.UsersCollection)}
}

// Create inserts u. The gNumber and the email are each unique.
func (r *MongoUserRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.CreatedEvents = orEmpty(u.CreatedEvents)
	u.EventsJoined = orEmpty(u.EventsJoined)

	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		return mongoError("insert user", err)
	}
	return nil
}

// FindByGNumberAndEmail returns the user owning both identifiers.
func (r *MongoUserRepository) FindByGNumberAndEmail(ctx context.Context, gNumber, email string) (*model.User, error) {
	var u model.User
	filter := bson.M{"gNumber": gNumber, "email": model.NormalizeEmail(email)}
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mongoError("user not found", err)
	}
	return u.Clone(), nil
}

// AddCreatedEvent appends eventID to the user's created events.
func (r *MongoUserRepository) AddCreatedEvent(ctx context.Context, userID, eventID string) error {
	return r.update(ctx, "add created event", userID, bson.M{"$addToSet": bson.M{"createdEvents": eventID}})
}

// AddJoinedEvent records eventID as joined; repeats are no-ops.
func (r *MongoUserRepository) AddJoinedEvent(ctx context.Context, userID, eventID string) error {
	return r.update(ctx, "add joined event", userID, bson.M{"$addToSet": bson.M{"eventsJoined": eventID}})
}

// RemoveJoinedEvent drops eventID from the user's joined events.
func (r *MongoUserRepository) RemoveJoinedEvent(ctx context.Context, userID, eventID string) error {
	return r.update(ctx, "remove joined event", userID, bson.M{"$pull": bson.M{"eventsJoined": eventID}})
}

func (r *MongoUserRepository) update(ctx context.Context, what, userID string, update bson.M) error {
	res, err := r.coll.UpdateByID(ctx, userID, update)
	if err != nil {
		return mongoError(what, err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// MongoEventRepository stores events as documents in the events collection.
type MongoEventRepository struct {
	coll *mongo.Collection
}

// NewMongoEventRepository returns a store backed by db's events collection.
func NewMongoEventRepository(db *mongo.Database) *MongoEventRepository {
	return &MongoEventRepository{coll: db.Collection(database.EventsCollection)}
}

// Create inserts e.
func (r *MongoEventRepository) Create(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.UsersJoined = orEmpty(e.UsersJoined)
	e.Version = 1

	if _, err := r.coll.InsertOne(ctx, e); err != nil {
		return mongoError("insert event", err)
	}
	return nil
}

// FindByID returns the event with id.
func (r *MongoEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, mongoError("event not found", err)
	}
	return normalizeEvent(&e), nil
}

// List returns every event.
func (r *MongoEventRepository) List(ctx context.Context) ([]model.Event, error) {
	return r.find(ctx, "list events", bson.M{})
}

// FindByIDs returns the events whose ids are in ids; unknown ids are skipped.
func (r *MongoEventRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Event, error) {
	if len(ids) == 0 {
		return []model.Event{}, nil
	}
	events, err := r.find(ctx, "get events by id", bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return orderByIDs(events, ids), nil
}

// FindByTitle returns events whose title contains term as a whole word.
func (r *MongoEventRepository) FindByTitle(ctx context.Context, term string) ([]model.Event, error) {
	return r.find(ctx, "find events by title", bson.M{"title": wordRegex(term)})
}

// FindByLocation returns events whose location contains term as a whole word.
func (r *MongoEventRepository) FindByLocation(ctx context.Context, term string) ([]model.Event, error) {
	return r.find(ctx, "find events by location", bson.M{"location": wordRegex(term)})
}

// FindByDate returns events held on the UTC day of day.
func (r *MongoEventRepository) FindByDate(ctx context.Context, day time.Time) ([]model.Event, error) {
	start, end := dayBounds(day)
	return r.find(ctx, "find events by date", bson.M{"date": bson.M{"$gte": start, "$lt": end}})
}

// FindUpcoming returns events dated at or after now.
func (r *MongoEventRepository) FindUpcoming(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.find(ctx, "find upcoming events", bson.M{"date": bson.M{"$gte": now}})
}

// FindPast returns events dated before now.
func (r *MongoEventRepository) FindPast(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.find(ctx, "find past events", bson.M{"date": bson.M{"$lt": now}})
}

// FindOneByTitle returns the oldest event whose title matches exactly, ignoring case.
func (r *MongoEventRepository) FindOneByTitle(ctx context.Context, title string) (*model.Event, error) {
	var e model.Event
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if err := r.coll.FindOne(ctx, bson.M{"title": exactRegex(title)}, opts).Decode(&e); err != nil {
		return nil, mongoError("event not found", err)
	}
	return normalizeEvent(&e), nil
}

// Update writes the mutable fields of e if the stored version still equals
// e.Version, and bumps the version.
func (r *MongoEventRepository) Update(ctx context.Context, e *model.Event) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": e.ID, "version": e.Version},
		bson.M{
			"$set": bson.M{
				"title":       e.Title,
				"description": e.Description,
				"date":        e.Date,
				"location":    e.Location,
				"usersJoined": orEmpty(e.UsersJoined),
				"slots":       e.Slots,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return mongoError("update event", err)
	}
	if res.MatchedCount == 1 {
		e.Version++
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": e.ID})
	if err != nil {
		return mongoError("check event", err)
	}
	if n == 0 {
		return apperr.NotFound("event not found")
	}
	return apperr.Conflict("event was modified concurrently")
}

// DeleteByID removes the event with id.
func (r *MongoEventRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongoError("delete event", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

// DeleteByTitle removes the event FindOneByTitle would return.
func (r *MongoEventRepository) DeleteByTitle(ctx context.Context, title string) error {
	opts := options.FindOneAndDelete().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	err := r.coll.FindOneAndDelete(ctx, bson.M{"title": exactRegex(title)}, opts).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("event not found")
		}
		return mongoError("delete event by title", err)
	}
	return nil
}

func (r *MongoEventRepository) find(ctx context.Context, what string, filter bson.M) ([]model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongoError(what, err)
	}
	events := []model.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, mongoError(what, err)
	}
	for i := range events {
		events[i] = *normalizeEvent(&events[i])
	}
	return events, nil
}

func wordRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: wordPattern(term), Options: "i"}
}

func exactRegex(title string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(title)) + "$", Options: "i"}
}

func normalizeEvent(e *model.Event) *model.Event {
	c := e.Clone()
	c.Date = c.Date.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return c
}
