package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/campus-events/eventsvc/internal/apperr"
)

var gNumberPattern = regexp.MustCompile(`^\d{8}$`)

// ValidGNumber reports whether s is exactly eight ASCII digits.
func ValidGNumber(s string) bool {
	return gNumberPattern.MatchString(s)
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseDate accepts a calendar day (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

// Identity is the (gNumber, email) pair that names a user.
type Identity struct {
	Email   string `json:"email"`
	GNumber string `json:"gNumber"`
}

func (id *Identity) normalize() {
	id.Email = NormalizeEmail(id.Email)
	id.GNumber = strings.TrimSpace(id.GNumber)
}

// Validate checks presence of both fields and the gNumber format.
func (id *Identity) Validate() error {
	id.normalize()
	if id.Email == "" {
		return apperr.Validation("email is required")
	}
	if id.GNumber == "" {
		return apperr.Validation("gNumber is required")
	}
	if !ValidGNumber(id.GNumber) {
		return apperr.Validation("%s is not a valid gNumber: it must be 8 digits long", id.GNumber)
	}
	return nil
}

// SignupRequest is the payload for POST /users/signup. Join requests share
// its shape since a join may create the user.
type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	GNumber   string `json:"gNumber"`
}

// Identity returns the normalized (gNumber, email) pair.
func (r SignupRequest) Identity() Identity {
	id := Identity{Email: r.Email, GNumber: r.GNumber}
	id.normalize()
	return id
}

// Validate trims and normalizes the request in place.
func (r *SignupRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.FirstName == "" {
		return apperr.Validation("firstName is required")
	}
	if r.LastName == "" {
		return apperr.Validation("lastName is required")
	}
	id := Identity{Email: r.Email, GNumber: r.GNumber}
	if err := id.Validate(); err != nil {
		return err
	}
	r.Email, r.GNumber = id.Email, id.GNumber
	return nil
}

// JoinRequest is the payload for POST /events/{id}/join.
type JoinRequest = SignupRequest

// LeaveRequest is the payload for POST /events/{id}/leave. Name fields are
// accepted so a join body can be replayed as-is, and ignored.
type LeaveRequest struct {
	Identity
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CreateEventRequest is the payload for POST /events. The creator fields
// identify, and if needed create, the owning user.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Slots       int    `json:"slots"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	GNumber   string `json:"gNumber"`
}

// Creator returns the creator portion of the request.
func (r *CreateEventRequest) Creator() SignupRequest {
	return SignupRequest{FirstName: r.FirstName, LastName: r.LastName, Email: r.Email, GNumber: r.GNumber}
}

// Validate checks the event fields and returns the parsed date.
func (r *CreateEventRequest) Validate() (time.Time, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	switch {
	case r.Title == "":
		return time.Time{}, apperr.Validation("title is required")
	case r.Description == "":
		return time.Time{}, apperr.Validation("description is required")
	case r.Location == "":
		return time.Time{}, apperr.Validation("location is required")
	case strings.TrimSpace(r.Date) == "":
		return time.Time{}, apperr.Validation("date is required")
	case r.Slots < 1:
		return time.Time{}, apperr.Validation("slots must be at least 1")
	}
	return ParseDate(r.Date)
}

// UpdateEventRequest is a partial update; nil fields are left unchanged.
// Creator and joined users are not updatable.
type UpdateEventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
	Slots       *int    `json:"slots"`
}

// Apply merges the request into e and re-validates the result.
func (r *UpdateEventRequest) Apply(e *Event) error {
	if r.Title != nil {
		e.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		e.Description = strings.TrimSpace(*r.Description)
	}
	if r.Location != nil {
		e.Location = strings.TrimSpace(*r.Location)
	}
	if r.Date != nil {
		d, err := ParseDate(*r.Date)
		if err != nil {
			return err
		}
		e.Date = d
	}
	if r.Slots != nil {
		if *r.Slots < 1 {
			return apperr.Validation("slots must be at least 1")
		}
		e.Slots = *r.Slots
	}
	switch {
	case e.Title == "":
		return apperr.Validation("title is required")
	case e.Description == "":
		return apperr.Validation("description is required")
	case e.Location == "":
		return apperr.Validation("location is required")
	}
	return nil
}
