package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/campus-events/eventsvc/internal/apperr"
	"github.com/campus-events/eventsvc/internal/model"
)

// UserService handles signup, find-or-create and the per-user event listings.
type UserService struct {
	users  UserStore
	events EventStore
	log    *zap.Logger

	// creating coalesces concurrent find-or-create calls for one identity.
	creating singleflight.Group
}

// NewUserService constructs a UserService with its dependencies.
func NewUserService(users UserStore, events EventStore, log *zap.Logger) *UserService {
	return &UserService{users: users, events: events, log: log}
}

// Signup creates a user. An existing (gNumber, email) pair, or either key
// belonging to another user, yields DuplicateKey.
func (s *UserService) Signup(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	_, err := s.users.FindByGNumberAndEmail(ctx, req.GNumber, req.Email)
	switch {
	case err == nil:
		return nil, apperr.DuplicateKey("user with this gNumber and email already exists")
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	u := newUser(req)
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user signed up", zap.String("user_id", u.ID), zap.String("g_number", u.GNumber))
	return u, nil
}

// FindOrCreate returns the user named by req's (gNumber, email), creating it
// when absent.
//
// Two requests racing to create the same new user are coalesced in-process;
// across processes the unique keys decide, and the loser re-reads the
// winner's document. If the re-read still misses, the gNumber or email is
// owned by a different pairing and DuplicateKey is returned.
func (s *UserService) FindOrCreate(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	// The shared call outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := s.creating.DoChan(req.GNumber+"|"+req.Email, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), findOrCreateTimeout)
		defer cancel()
		return s.findOrCreate(shared, req)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.User).Clone(), nil
	}
}

func (s *UserService) findOrCreate(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	u, err := s.users.FindByGNumberAndEmail(ctx, req.GNumber, req.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	u = newUser(req)
	createErr := s.users.Create(ctx, u)
	if createErr == nil {
		s.log.Info("user created implicitly", zap.String("user_id", u.ID), zap.String("g_number", u.GNumber))
		return u, nil
	}
	if !errors.Is(createErr, apperr.ErrDuplicateKey) {
		return nil, createErr
	}

	u, err = s.users.FindByGNumberAndEmail(ctx, req.GNumber, req.Email)
	if err != nil {
		return nil, createErr
	}
	return u, nil
}

// Lookup returns the user named by id or NotFound.
func (s *UserService) Lookup(ctx context.Context, id model.Identity) (*model.User, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	u, err := s.users.FindByGNumberAndEmail(ctx, id.GNumber, id.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

// CreatedEvents returns the events the user created. Deleted events are skipped.
func (s *UserService) CreatedEvents(ctx context.Context, id model.Identity) ([]model.Event, error) {
	u, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.events.FindByIDs(ctx, u.CreatedEvents)
}

// JoinedEvents returns the events the user joined. Deleted events are skipped.
func (s *UserService) JoinedEvents(ctx context.Context, id model.Identity) ([]model.Event, error) {
	u, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.events.FindByIDs(ctx, u.EventsJoined)
}

func newUser(req model.SignupRequest) *model.User {
	return &model.User{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		GNumber:       req.GNumber,
		CreatedEvents: []string{},
		EventsJoined:  []string{},
	}
}
