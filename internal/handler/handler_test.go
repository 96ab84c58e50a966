package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-events/eventsvc/internal/apperr"
	"github.com/campus-events/eventsvc/internal/model"
	"github.com/campus-events/eventsvc/internal/repository"
	"github.com/campus-events/eventsvc/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zap.NewNop()
	users := repository.NewMemoryUserRepository()
	events := repository.NewMemoryEventRepository()
	userSvc := service.NewUserService(users, events, log)
	eventSvc := service.NewEventService(events, users, userSvc, log)

	srv := httptest.NewServer(NewRouter(
		NewEventHandler(eventSvc, log),
		NewUserHandler(userSvc, log),
		log,
		Options{},
	))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func person(g string) map[string]string {
	return map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     g + "@example.edu",
		"gNumber":   g,
	}
}

func createChessNight(t *testing.T, srv *httptest.Server, slots int) model.Event {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/events", map[string]any{
		"title":       "Chess Night",
		"description": "Casual games",
		"date":        "2031-01-15T19:00:00Z",
		"location":    "Student Union",
		"slots":       slots,
		"firstName":   "Grace",
		"lastName":    "Hopper",
		"email":       "Grace@Example.edu",
		"gNumber":     "12345678",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.Event](t, resp)
}

func TestChessNightFlow(t *testing.T) {
	srv := newTestServer(t)

	event := createChessNight(t, srv, 1)
	assert.Equal(t, 1, event.Slots)
	assert.Empty(t, event.UsersJoined)

	resp := do(t, srv, http.MethodPost, "/events/"+event.ID+"/join", person("23456789"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	joined := decode[model.JoinResponse](t, resp)
	assert.Equal(t, 0, joined.Event.Slots)
	assert.Len(t, joined.Event.UsersJoined, 1)

	resp = do(t, srv, http.MethodPost, "/events/"+event.ID+"/join", person("34567890"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decode[model.ErrorResponse](t, resp)
	assert.Equal(t, "no_capacity", errBody.Kind)
	assert.Equal(t, "no slots available for this event", errBody.Error)
}

func TestJoinLeave(t *testing.T) {
	srv := newTestServer(t)
	event := createChessNight(t, srv, 2)
	joiner := person("23456789")

	resp := do(t, srv, http.MethodPost, "/events/"+event.ID+"/join", joiner)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/events/"+event.ID+"/join", joiner)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "already_joined", decode[model.ErrorResponse](t, resp).Kind)

	resp = do(t, srv, http.MethodGet, "/users/23456789/"+url.PathEscape(joiner["email"])+"/eventsJoined", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[model.JoinedEventsResponse](t, resp).EventsJoined, 1)

	leave := map[string]string{"email": joiner["email"], "gNumber": joiner["gNumber"]}
	resp = do(t, srv, http.MethodPost, "/events/"+event.ID+"/leave", leave)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	left := decode[model.JoinResponse](t, resp)
	assert.Equal(t, 2, left.Event.Slots)
	assert.Empty(t, left.Event.UsersJoined)

	resp = do(t, srv, http.MethodPost, "/events/"+event.ID+"/leave", leave)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "not_joined", decode[model.ErrorResponse](t, resp).Kind)

	// A join body replayed against leave is accepted.
	resp = do(t, srv, http.MethodPost, "/events/"+event.ID+"/join", joiner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, srv, http.MethodPost, "/events/"+event.ID+"/leave", joiner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[model.JoinResponse](t, resp).Event.UsersJoined)

	resp = do(t, srv, http.MethodPost, "/events/missing/leave", leave)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSignup(t *testing.T) {
	srv := newTestServer(t)
	body := person("45678901")
	body["email"] = "Ada@Example.EDU"

	resp := do(t, srv, http.MethodPost, "/users/signup", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.SignupResponse](t, resp)
	assert.Equal(t, "ada@example.edu", created.User.Email)
	assert.Equal(t, "45678901", created.User.GNumber)

	resp = do(t, srv, http.MethodPost, "/users/signup", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate_key", decode[model.ErrorResponse](t, resp).Kind)

	body["gNumber"] = "4567"
	resp = do(t, srv, http.MethodPost, "/users/signup", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", decode[model.ErrorResponse](t, resp).Kind)
}

func TestCreatedEvents(t *testing.T) {
	srv := newTestServer(t)
	event := createChessNight(t, srv, 3)

	resp := do(t, srv, http.MethodGet, "/users/12345678/grace@example.edu/eventsCreated", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[model.CreatedEventsResponse](t, resp).CreatedEvents
	require.Len(t, created, 1)
	assert.Equal(t, event.ID, created[0].ID)

	resp = do(t, srv, http.MethodGet, "/users/87654321/nobody@example.edu/eventsCreated", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventLookups(t *testing.T) {
	srv := newTestServer(t)
	event := createChessNight(t, srv, 3)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"list", "/events", http.StatusOK},
		{"by id", "/events/id/" + event.ID, http.StatusOK},
		{"unknown id", "/events/id/nope", http.StatusNotFound},
		{"by title", "/events/title/" + url.PathEscape("chess"), http.StatusOK},
		{"partial word title", "/events/title/Che", http.StatusNotFound},
		{"by location", "/events/location/union", http.StatusOK},
		{"by date", "/events/date/2031-01-15", http.StatusOK},
		{"other date", "/events/date/2031-01-16", http.StatusNotFound},
		{"bad date", "/events/date/tomorrow", http.StatusBadRequest},
		{"upcoming", "/events/upcoming", http.StatusOK},
		{"past", "/events/past", http.StatusNotFound},
		{"health", "/health", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestTitleWithEscapes(t *testing.T) {
	srv := newTestServer(t)
	for _, title := range []string{"Save 50%41 Sale", "AC/DC Tribute"} {
		resp := do(t, srv, http.MethodPost, "/events", map[string]any{
			"title":       title,
			"description": "Tickets at the door",
			"date":        "2031-03-01",
			"location":    "Main Hall",
			"slots":       5,
			"firstName":   "Grace",
			"lastName":    "Hopper",
			"email":       "grace@example.edu",
			"gNumber":     "12345678",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := do(t, srv, http.MethodGet, "/events/title/"+url.PathEscape("50%41"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[[]model.Event](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "Save 50%41 Sale", found[0].Title)

	resp = do(t, srv, http.MethodGet, "/events/title/A", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, "/events/title/"+url.PathEscape("AC/DC Tribute"), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListEventsEmpty(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var raw bytes.Buffer
	_, err := raw.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(raw.String()))
}

func TestUpdateAndDelete(t *testing.T) {
	srv := newTestServer(t)
	event := createChessNight(t, srv, 3)

	resp := do(t, srv, http.MethodPut, "/events/id/"+event.ID, map[string]any{"location": "Library Hall", "slots": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.Event](t, resp)
	assert.Equal(t, "Library Hall", updated.Location)
	assert.Equal(t, 10, updated.Slots)

	resp = do(t, srv, http.MethodPut, "/events/id/"+event.ID, map[string]any{"slots": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodPut, "/events/title/"+url.PathEscape("Chess Night"), map[string]any{"description": "Bring a board"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bring a board", decode[model.Event](t, resp).Description)

	resp = do(t, srv, http.MethodPut, "/events/id/"+event.ID, map[string]any{"creator": "someone"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, "/events/title/"+url.PathEscape("Chess Night"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, "/events/id/"+event.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/events", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", decode[model.ErrorResponse](t, resp).Kind)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestStatusFor(t *testing.T) {
	tests := map[apperr.Kind]int{
		apperr.KindNotFound:      http.StatusNotFound,
		apperr.KindValidation:    http.StatusBadRequest,
		apperr.KindNoCapacity:    http.StatusBadRequest,
		apperr.KindAlreadyJoined: http.StatusBadRequest,
		apperr.KindNotJoined:     http.StatusBadRequest,
		apperr.KindDuplicateKey:  http.StatusConflict,
		apperr.KindConflict:      http.StatusConflict,
		apperr.KindPartialUpdate: http.StatusInternalServerError,
		apperr.KindPersistence:   http.StatusServiceUnavailable,
		apperr.KindInternal:      http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusFor(kind), kind)
	}
}
