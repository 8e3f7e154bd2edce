package dto

import (
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

func ToEventFull(e *domain.Event) EventFullResp {
	return EventFullResp{
		ID:                e.ID,
		Annotation:        e.Annotation,
		Category:          e.CategoryID,
		ConfirmedRequests: e.ConfirmedRequests,
		CreatedOn:         NewDateTime(e.CreatedOn),
		Description:       e.Description,
		EventDate:         NewDateTime(e.EventDate),
		Initiator:         e.InitiatorID,
		Location:          LocationDto{Lat: e.Location.Lat, Lon: e.Location.Lon},
		Paid:              e.Paid,
		ParticipantLimit:  e.ParticipantLimit,
		PublishedOn:       NewDateTimePtr(e.PublishedOn),
		RequestModeration: e.RequestModeration,
		State:             string(e.State),
		Title:             e.Title,
		Views:             e.Views,
	}
}

func ToEventShort(e *domain.Event) EventShortResp {
	return EventShortResp{
		ID:                e.ID,
		Annotation:        e.Annotation,
		Category:          e.CategoryID,
		ConfirmedRequests: e.ConfirmedRequests,
		EventDate:         NewDateTime(e.EventDate),
		Initiator:         e.InitiatorID,
		Paid:              e.Paid,
		Title:             e.Title,
		Views:             e.Views,
	}
}

func ToEventFullList(in []*domain.Event) []EventFullResp {
	out := make([]EventFullResp, 0, len(in))
	for _, e := range in {
		out = append(out, ToEventFull(e))
	}
	return out
}

func ToEventShortList(in []*domain.Event) []EventShortResp {
	out := make([]EventShortResp, 0, len(in))
	for _, e := range in {
		out = append(out, ToEventShort(e))
	}
	return out
}

func ToRequest(r *domain.ParticipationRequest) RequestResp {
	return RequestResp{
		ID:        r.ID,
		Requester: r.RequesterID,
		Event:     r.EventID,
		Created:   NewDateTime(r.Created),
		Status:    string(r.Status),
	}
}

func ToRequestList(in []*domain.ParticipationRequest) []RequestResp {
	out := make([]RequestResp, 0, len(in))
	for _, r := range in {
		out = append(out, ToRequest(r))
	}
	return out
}

func ToBulkStatus(res *domain.BulkResult) BulkStatusResp {
	out := BulkStatusResp{
		ConfirmedRequests: make([]RequestResp, 0, len(res.Confirmed)),
		RejectedRequests:  make([]RequestResp, 0, len(res.Rejected)),
	}
	for i := range res.Confirmed {
		out.ConfirmedRequests = append(out.ConfirmedRequests, ToRequest(&res.Confirmed[i]))
	}
	for i := range res.Rejected {
		out.RejectedRequests = append(out.RejectedRequests, ToRequest(&res.Rejected[i]))
	}
	return out
}

func (r NewEventReq) ToDomain() domain.NewEvent {
	in := domain.NewEvent{
		Annotation:        r.Annotation,
		Description:       r.Description,
		Title:             r.Title,
		CategoryID:        r.Category,
		Paid:              r.Paid,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
	}
	if r.EventDate != nil {
		in.EventDate = r.EventDate.Time
	}
	if r.Location != nil {
		in.Location = domain.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
	}
	return in
}

func (r UpdateEventReq) ToPatch() domain.Patch {
	p := domain.Patch{
		Annotation:        r.Annotation,
		Description:       r.Description,
		Title:             r.Title,
		CategoryID:        r.Category,
		Paid:              r.Paid,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
	}
	if r.EventDate != nil {
		t := r.EventDate.Time
		p.EventDate = &t
	}
	if r.Location != nil {
		p.Location = &domain.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
	}
	return p
}
