package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/stats"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/validate"
)

// HitApp is the application name reported with public view hits.
const HitApp = "ewm-main"

type Clock interface{ Now() time.Time }

type HitRecorder interface {
	RecordHit(ctx context.Context, h stats.Hit)
}

type EventsHandler struct {
	svc   *event.Service
	hits  HitRecorder
	clock Clock
}

func NewEventsHandler(svc *event.Service, hits HitRecorder, clock Clock) *EventsHandler {
	return &EventsHandler{svc: svc, hits: hits, clock: clock}
}

// recordHit runs after the handler wrote its response, whatever the outcome.
func (h *EventsHandler) recordHit(r *http.Request) {
	if h.hits == nil {
		return
	}
	h.hits.RecordHit(r.Context(), stats.Hit{
		App:       HitApp,
		URI:       r.URL.Path,
		IP:        clientIP(r),
		Timestamp: h.clock.Now().UTC(),
	})
}

// Public

func (h *EventsHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	defer h.recordHit(r)

	q := validate.NewQuery(r)
	f := event.PublicFilter{
		Text:          q.String("text"),
		Categories:    q.Int64s("categories"),
		Paid:          q.Bool("paid"),
		RangeStart:    q.Time("rangeStart"),
		RangeEnd:      q.Time("rangeEnd"),
		OnlyAvailable: boolOr(q.Bool("onlyAvailable"), false),
		Sort:          q.String("sort"),
	}
	page := domain.Page{From: q.Int("from", 0), Size: q.Int("size", domain.DefaultPageSize)}
	if err := q.Err(); err != nil {
		response.Err(w, r, err)
		return
	}

	items, err := h.svc.SearchPublic(r.Context(), f, page)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventShortList(items))
}

func (h *EventsHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	defer h.recordHit(r)

	id, err := validate.PathID(r, "id")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	ev, err := h.svc.GetPublished(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFull(ev))
}

// Initiator

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.NewEventReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	ev, err := h.svc.Create(r.Context(), middleware.UserID(r), req.ToDomain())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToEventFull(ev))
}

func (h *EventsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	q := validate.NewQuery(r)
	page := domain.Page{From: q.Int("from", 0), Size: q.Int("size", domain.DefaultPageSize)}
	if err := q.Err(); err != nil {
		response.Err(w, r, err)
		return
	}
	items, err := h.svc.ListByInitiator(r.Context(), middleware.UserID(r), page)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventShortList(items))
}

func (h *EventsHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	id, err := validate.PathID(r, "eventId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	ev, err := h.svc.GetForInitiator(r.Context(), middleware.UserID(r), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFull(ev))
}

func (h *EventsHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	id, err := validate.PathID(r, "eventId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	var req dto.UpdateEventReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	ev, err := h.svc.ApplyUserAction(r.Context(), middleware.UserID(r), id, domain.UserAction(req.StateAction), req.ToPatch())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFull(ev))
}

// Admin

func (h *EventsHandler) SearchAdmin(w http.ResponseWriter, r *http.Request) {
	q := validate.NewQuery(r)
	f := event.AdminFilter{
		Users:      q.Int64s("users"),
		Categories: q.Int64s("categories"),
		RangeStart: q.Time("rangeStart"),
		RangeEnd:   q.Time("rangeEnd"),
	}
	for _, s := range q.Strings("states") {
		f.States = append(f.States, domain.EventState(s))
	}
	page := domain.Page{From: q.Int("from", 0), Size: q.Int("size", domain.DefaultPageSize)}
	if err := q.Err(); err != nil {
		response.Err(w, r, err)
		return
	}

	items, err := h.svc.SearchAdmin(r.Context(), f, page)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFullList(items))
}

func (h *EventsHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := validate.PathID(r, "eventId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	var req dto.UpdateEventReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	ev, err := h.svc.ApplyAdminAction(r.Context(), id, domain.AdminAction(req.StateAction), req.ToPatch())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFull(ev))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
