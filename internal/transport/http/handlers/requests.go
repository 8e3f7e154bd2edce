package handlers

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/admission"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/validate"
)

type RequestsHandler struct {
	svc *admission.Service
}

func NewRequestsHandler(svc *admission.Service) *RequestsHandler {
	return &RequestsHandler{svc: svc}
}

func (h *RequestsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListForRequester(r.Context(), middleware.UserID(r))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequestList(items))
}

// Submit handles POST /users/me/requests?eventId=.
func (h *RequestsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	q := validate.NewQuery(r)
	eventID := q.Int64("eventId")
	if err := q.Err(); err != nil {
		response.Err(w, r, err)
		return
	}
	req, err := h.svc.Submit(r.Context(), middleware.UserID(r), eventID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToRequest(req))
}

func (h *RequestsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := validate.PathID(r, "requestId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	req, err := h.svc.Cancel(r.Context(), middleware.UserID(r), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequest(req))
}

func (h *RequestsHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := validate.PathID(r, "eventId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	items, err := h.svc.ListForEvent(r.Context(), middleware.UserID(r), eventID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequestList(items))
}

func (h *RequestsHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	eventID, err := validate.PathID(r, "eventId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	var req dto.BulkStatusReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	res, err := h.svc.BulkUpdate(r.Context(), middleware.UserID(r), eventID, req.RequestIDs, domain.RequestStatus(req.Status))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToBulkStatus(res))
}
