// Package model defines the core domain types for the event management system.
package model

import (
	"slices"
	"time"
)

// User is a person who creates or joins events. (GNumber, Email) identifies
// a user and each of the two is unique on its own.
type User struct {
	ID            string    `json:"id" bson:"_id"`
	FirstName     string    `json:"firstName" bson:"firstName"`
	LastName      string    `json:"lastName" bson:"lastName"`
	Email         string    `json:"email" bson:"email"`
	GNumber       string    `json:"gNumber" bson:"gNumber"`
	CreatedEvents []string  `json:"createdEvents" bson:"createdEvents"`
	EventsJoined  []string  `json:"eventsJoined" bson:"eventsJoined"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// Event is a schedulable activity with a limited number of remaining slots.
type Event struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Date        time.Time `json:"date" bson:"date"`
	Location    string    `json:"location" bson:"location"`
	Creator     string    `json:"creator" bson:"creator"`
	UsersJoined []string  `json:"usersJoined" bson:"usersJoined"`
	Slots       int       `json:"slots" bson:"slots"`
	// Version is bumped on every persisted mutation and guards concurrent
	// read-modify-write cycles.
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// HasJoined reports whether userID is in the event's joined list.
func (e *Event) HasJoined(userID string) bool {
	return slices.Contains(e.UsersJoined, userID)
}

// IsFull returns true when no slots remain.
func (e *Event) IsFull() bool {
	return e.Slots <= 0
}

// Join adds userID and consumes a slot. The caller checks HasJoined and
// IsFull first.
func (e *Event) Join(userID string) {
	e.UsersJoined = append(slices.Clone(e.UsersJoined), userID)
	e.Slots--
}

// Leave removes userID and returns its slot.
func (e *Event) Leave(userID string) {
	e.UsersJoined = slices.DeleteFunc(slices.Clone(e.UsersJoined), func(id string) bool { return id == userID })
	e.Slots++
}

// Clone returns a deep copy so stores never share slices with callers.
func (e *Event) Clone() *Event {
	c := *e
	c.UsersJoined = slices.Clone(e.UsersJoined)
	if c.UsersJoined == nil {
		c.UsersJoined = []string{}
	}
	return &c
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	c.CreatedEvents = slices.Clone(u.CreatedEvents)
	c.EventsJoined = slices.Clone(u.EventsJoined)
	if c.CreatedEvents == nil {
		c.CreatedEvents = []string{}
	}
	if c.EventsJoined == nil {
		c.EventsJoined = []string{}
	}
	return &c
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// MessageResponse is returned by operations without a richer payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SignupResponse is returned by POST /users/signup.
type SignupResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
}

// JoinResponse is returned by join and leave.
type JoinResponse struct {
	Message string `json:"message"`
	Event   *Event `json:"event"`
}

// CreatedEventsResponse lists the events a user created.
type CreatedEventsResponse struct {
	CreatedEvents []Event `json:"createdEvents"`
}

// JoinedEventsResponse lists the events a user joined.
type JoinedEventsResponse struct {
	EventsJoined []Event `json:"eventsJoined"`
}
