package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/admission"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/db/memory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/stats"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/handlers"
	authmw "github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/router"
)

const secret = "handler-secret"

var now = time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeHits struct {
	mu   sync.Mutex
	hits []stats.Hit
}

func (f *fakeHits) RecordHit(_ context.Context, h stats.Hit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, h)
}

func (f *fakeHits) all() []stats.Hit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stats.Hit(nil), f.hits...)
}

type env struct {
	srv  http.Handler
	hits *fakeHits
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.New()
	for _, u := range []int64{1, 2, 3} {
		st.AddUser(u)
	}
	st.AddCategory(5)

	clock := fixedClock{now}
	events := event.New(st, st, clock)
	adm := admission.New(st, st, st, clock, admission.WithInvalidator(events))
	hits := &fakeHits{}

	h := router.New(
		handlers.NewEventsHandler(events, hits, clock),
		handlers.NewRequestsHandler(adm),
		authmw.NewAuth(secret, ""),
		handlers.NewHealthHandler(nil),
		&config.Config{RLEnabled: false},
	)
	return &env{srv: h, hits: hits}
}

func token(t *testing.T, uid int64, role string) string {
	t.Helper()
	claims := authmw.Claims{
		UserID: strconv.FormatInt(uid, 10),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return ss
}

type result struct {
	Code int
	Data json.RawMessage
	Err  struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Meta    map[string]string `json:"meta"`
	}
}

func (e *env) do(t *testing.T, method, path, tok string, body any) result {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	e.srv.ServeHTTP(rr, req)

	var raw struct {
		Data  json.RawMessage `json:"data"`
		Error json.RawMessage `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw), rr.Body.String())

	res := result{Code: rr.Code, Data: raw.Data}
	if len(raw.Error) > 0 {
		require.NoError(t, json.Unmarshal(raw.Error, &res.Err))
	}
	return res
}

func newEventBody(limit int64, moderation bool) map[string]any {
	return map[string]any{
		"annotation":        "A long enough annotation for the event",
		"category":          5,
		"description":       "A long enough description for the event",
		"eventDate":         "2030-03-05 18:00:00",
		"location":          map[string]float64{"lat": 55.75, "lon": 37.61},
		"paid":              true,
		"participantLimit":  limit,
		"requestModeration": moderation,
		"title":             "Go meetup",
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type eventResp struct {
	ID                int64   `json:"id"`
	State             string  `json:"state"`
	ConfirmedRequests int64   `json:"confirmedRequests"`
	PublishedOn       *string `json:"publishedOn"`
	EventDate         string  `json:"eventDate"`
}

type requestResp struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func TestModeratedSingleSeatFlow(t *testing.T) {
	e := newEnv(t)
	owner, guest, late := token(t, 1, "user"), token(t, 2, "user"), token(t, 3, "user")
	admin := token(t, 99, authmw.RoleAdmin)

	res := e.do(t, http.MethodPost, "/users/me/events", owner, newEventBody(1, true))
	require.Equal(t, http.StatusCreated, res.Code, res.Err.Message)
	ev := decode[eventResp](t, res.Data)
	assert.Equal(t, "PENDING", ev.State)
	assert.Equal(t, "2030-03-05 18:00:00", ev.EventDate)

	res = e.do(t, http.MethodPatch, fmt.Sprintf("/admin/events/%d", ev.ID), admin, map[string]any{"stateAction": "PUBLISH_EVENT"})
	require.Equal(t, http.StatusOK, res.Code, res.Err.Message)
	pub := decode[eventResp](t, res.Data)
	assert.Equal(t, "PUBLISHED", pub.State)
	require.NotNil(t, pub.PublishedOn)
	assert.Equal(t, "2030-03-01 10:00:00", *pub.PublishedOn)

	res = e.do(t, http.MethodPost, fmt.Sprintf("/users/me/requests?eventId=%d", ev.ID), guest, nil)
	require.Equal(t, http.StatusCreated, res.Code, res.Err.Message)
	pending := decode[requestResp](t, res.Data)
	assert.Equal(t, "PENDING", pending.Status)

	res = e.do(t, http.MethodPatch, fmt.Sprintf("/users/me/events/%d/requests", ev.ID), owner, map[string]any{
		"requestIds": []int64{pending.ID},
		"status":     "CONFIRMED",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Err.Message)
	bulk := decode[struct {
		Confirmed []requestResp `json:"confirmedRequests"`
		Rejected  []requestResp `json:"rejectedRequests"`
	}](t, res.Data)
	require.Len(t, bulk.Confirmed, 1)
	assert.Empty(t, bulk.Rejected)

	res = e.do(t, http.MethodPost, fmt.Sprintf("/users/me/requests?eventId=%d", ev.ID), late, nil)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "capacity exhausted", res.Err.Message)

	res = e.do(t, http.MethodGet, fmt.Sprintf("/events/%d", ev.ID), "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, int64(1), decode[eventResp](t, res.Data).ConfirmedRequests)

	hits := e.hits.all()
	require.Len(t, hits, 1)
	assert.Equal(t, handlers.HitApp, hits[0].App)
	assert.Equal(t, fmt.Sprintf("/events/%d", ev.ID), hits[0].URI)
	assert.Equal(t, now, hits[0].Timestamp)
}

func TestPublicSearch(t *testing.T) {
	e := newEnv(t)
	owner, admin := token(t, 1, "user"), token(t, 99, authmw.RoleAdmin)

	created := e.do(t, http.MethodPost, "/users/me/events", owner, newEventBody(0, false))
	require.Equal(t, http.StatusCreated, created.Code)
	id := decode[eventResp](t, created.Data).ID

	res := e.do(t, http.MethodGet, "/events?categories=5&paid=true", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, decode[[]eventResp](t, res.Data), "pending events are not public")

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPatch, fmt.Sprintf("/admin/events/%d", id), admin,
		map[string]any{"stateAction": "PUBLISH_EVENT"}).Code)

	res = e.do(t, http.MethodGet, "/events?categories=5&paid=true&sort=VIEWS", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	items := decode[[]eventResp](t, res.Data)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)

	t.Run("bad_range_is_validation_and_still_counted", func(t *testing.T) {
		before := len(e.hits.all())
		res := e.do(t, http.MethodGet, "/events?rangeStart=yesterday", "", nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Contains(t, res.Err.Meta, "rangeStart")
		assert.Len(t, e.hits.all(), before+1)
	})

	t.Run("inverted_range", func(t *testing.T) {
		res := e.do(t, http.MethodGet, "/events?rangeStart=2030-04-01%2000:00:00&rangeEnd=2030-03-01%2000:00:00", "", nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("unpublished_detail_is_not_found", func(t *testing.T) {
		other := e.do(t, http.MethodPost, "/users/me/events", owner, newEventBody(0, false))
		require.Equal(t, http.StatusCreated, other.Code)
		res := e.do(t, http.MethodGet, fmt.Sprintf("/events/%d", decode[eventResp](t, other.Data).ID), "", nil)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestAccessControl(t *testing.T) {
	e := newEnv(t)
	owner, stranger := token(t, 1, "user"), token(t, 2, "user")

	created := e.do(t, http.MethodPost, "/users/me/events", owner, newEventBody(0, true))
	require.Equal(t, http.StatusCreated, created.Code)
	id := decode[eventResp](t, created.Data).ID

	tests := []struct {
		name   string
		method string
		path   string
		tok    string
		body   any
		want   int
	}{
		{"no_token", http.MethodGet, "/users/me/events", "", nil, http.StatusUnauthorized},
		{"user_on_admin", http.MethodGet, "/admin/events", owner, nil, http.StatusForbidden},
		{"stranger_lists_requests", http.MethodGet, fmt.Sprintf("/users/me/events/%d/requests", id), stranger, nil, http.StatusForbidden},
		{"stranger_reads_event", http.MethodGet, fmt.Sprintf("/users/me/events/%d", id), stranger, nil, http.StatusNotFound},
		{"stranger_patches_event", http.MethodPatch, fmt.Sprintf("/users/me/events/%d", id), stranger,
			map[string]any{"stateAction": "CANCEL_REVIEW"}, http.StatusForbidden},
		{"bad_path_id", http.MethodGet, "/users/me/events/abc", owner, nil, http.StatusBadRequest},
		{"missing_event_id", http.MethodPost, "/users/me/requests", stranger, nil, http.StatusBadRequest},
		{"bulk_bad_status", http.MethodPatch, fmt.Sprintf("/users/me/events/%d/requests", id), owner,
			map[string]any{"requestIds": []int64{1}, "status": "PENDING"}, http.StatusBadRequest},
		{"short_title", http.MethodPost, "/users/me/events", owner,
			func() map[string]any { b := newEventBody(0, true); b["title"] = "Go"; return b }(), http.StatusBadRequest},
		{"bad_event_date_format", http.MethodPost, "/users/me/events", owner,
			func() map[string]any { b := newEventBody(0, true); b["eventDate"] = "2030-03-05T18:00:00Z"; return b }(), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.do(t, tt.method, tt.path, tt.tok, tt.body)
			assert.Equal(t, tt.want, res.Code, res.Err.Message)
		})
	}
}

func TestCancelFlow(t *testing.T) {
	e := newEnv(t)
	owner, guest, admin := token(t, 1, "user"), token(t, 2, "user"), token(t, 99, authmw.RoleAdmin)

	created := e.do(t, http.MethodPost, "/users/me/events", owner, newEventBody(0, false))
	id := decode[eventResp](t, created.Data).ID
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPatch, fmt.Sprintf("/admin/events/%d", id), admin,
		map[string]any{"stateAction": "PUBLISH_EVENT"}).Code)

	res := e.do(t, http.MethodPost, fmt.Sprintf("/users/me/requests?eventId=%d", id), guest, nil)
	require.Equal(t, http.StatusCreated, res.Code)
	req := decode[requestResp](t, res.Data)
	assert.Equal(t, "CONFIRMED", req.Status)

	res = e.do(t, http.MethodPatch, fmt.Sprintf("/users/me/requests/%d/cancel", req.ID), owner, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	for i := 0; i < 2; i++ {
		res = e.do(t, http.MethodPatch, fmt.Sprintf("/users/me/requests/%d/cancel", req.ID), guest, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "CANCELED", decode[requestResp](t, res.Data).Status)
	}

	res = e.do(t, http.MethodGet, "/users/me/requests", guest, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, decode[[]requestResp](t, res.Data), 1)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	res := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
}
