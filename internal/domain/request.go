package domain

import "time"

type ParticipationRequest struct {
	ID          int64
	RequesterID int64
	EventID     int64
	Created     time.Time
	Status      RequestStatus
}

// BulkResult partitions the requests changed by a bulk decision.
type BulkResult struct {
	Confirmed []ParticipationRequest
	Rejected  []ParticipationRequest
}

// AdmissionStatus decides the initial status of a new request for e.
// Unlimited events bypass moderation.
func AdmissionStatus(e *Event) RequestStatus {
	if !e.RequestModeration || e.ParticipantLimit == 0 {
		return RequestConfirmed
	}
	return RequestPending
}

// CheckAdmission enforces the submit preconditions against the locked event.
func CheckAdmission(e *Event, requesterID int64) error {
	if e.InitiatorID == requesterID {
		return ErrValidation("initiator cannot request participation in own event")
	}
	if e.State != StatePublished {
		return ErrConflict("event is not published")
	}
	if e.IsFull() {
		return ErrCapacityExhausted()
	}
	return nil
}

// Cancel moves the request to CANCELED. It reports false when the request was already canceled.
func (r *ParticipationRequest) Cancel() (bool, error) {
	switch r.Status {
	case RequestCanceled:
		return false, nil
	case RequestPending, RequestConfirmed:
		r.Status = RequestCanceled
		return true, nil
	default:
		return false, ErrConflict("request in status " + string(r.Status) + " cannot be canceled")
	}
}

// Decide applies an initiator decision to a pending request.
func (r *ParticipationRequest) Decide(target RequestStatus) error {
	if target != RequestConfirmed && target != RequestRejected {
		return ErrValidationMeta("invalid field", map[string]string{"status": "must be CONFIRMED or REJECTED"})
	}
	if r.Status != RequestPending {
		return ErrValidationMeta("request must have status PENDING", map[string]string{
			"status": string(r.Status),
		})
	}
	r.Status = target
	return nil
}
