package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*domain.Event, error) {
	var (
		e           domain.Event
		state       string
		publishedOn sql.NullTime
	)
	err := s.Scan(
		&e.ID, &e.Annotation, &e.Description, &e.Title, &e.CategoryID, &e.InitiatorID,
		&e.Location.Lat, &e.Location.Lon, &e.EventDate, &e.CreatedOn, &publishedOn, &e.Paid,
		&e.ParticipantLimit, &e.RequestModeration, &e.ConfirmedRequests, &state,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("event not found")
	}
	if err != nil {
		return nil, err
	}
	e.State = domain.EventState(state)
	if !e.State.Valid() {
		return nil, errors.New("invalid event state in db: " + state)
	}
	e.EventDate = e.EventDate.UTC()
	e.CreatedOn = e.CreatedOn.UTC()
	if publishedOn.Valid {
		t := publishedOn.Time.UTC()
		e.PublishedOn = &t
	}
	return &e, nil
}

func scanRequest(s scanner) (*domain.ParticipationRequest, error) {
	var (
		r      domain.ParticipationRequest
		status string
	)
	err := s.Scan(&r.ID, &r.RequesterID, &r.EventID, &r.Created, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("request not found")
	}
	if err != nil {
		return nil, err
	}
	r.Status = domain.RequestStatus(status)
	if !r.Status.Valid() {
		return nil, errors.New("invalid request status in db: " + status)
	}
	r.Created = r.Created.UTC()
	return &r, nil
}

func scanRequests(rows *sql.Rows) ([]*domain.ParticipationRequest, error) {
	defer rows.Close()
	out := make([]*domain.ParticipationRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
