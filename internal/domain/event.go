package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// CreateLeadTime is the minimum gap between creation and the event date.
	CreateLeadTime = 2 * time.Hour
	// EditLeadTime applies to later date edits and to admin publish.
	EditLeadTime = 1 * time.Hour
)

type textBounds struct{ min, max int }

var (
	annotationBounds  = textBounds{20, 2000}
	descriptionBounds = textBounds{20, 7000}
	titleBounds       = textBounds{3, 120}
)

type Location struct {
	Lat float64
	Lon float64
}

type Event struct {
	ID                int64
	Annotation        string
	Description       string
	Title             string
	CategoryID        int64
	InitiatorID       int64
	Location          Location
	EventDate         time.Time
	CreatedOn         time.Time
	PublishedOn       *time.Time
	Paid              bool
	ParticipantLimit  int64 // 0 = unlimited
	RequestModeration bool
	ConfirmedRequests int64
	State             EventState

	// Views is filled from the stats collector on read paths and never stored.
	Views int64
}

// NewEvent is the draft submitted by an initiator. Nil pointers take the defaults.
type NewEvent struct {
	Annotation        string
	Description       string
	Title             string
	CategoryID        int64
	Location          Location
	EventDate         time.Time
	Paid              *bool
	ParticipantLimit  *int64
	RequestModeration *bool
}

// Patch is a partial update. Only non-nil fields change; blank text is ignored.
type Patch struct {
	Annotation        *string
	Description       *string
	Title             *string
	CategoryID        *int64
	Location          *Location
	EventDate         *time.Time
	Paid              *bool
	ParticipantLimit  *int64
	RequestModeration *bool
}

func NewPending(initiatorID int64, in NewEvent, now time.Time) (*Event, error) {
	if initiatorID <= 0 {
		return nil, ErrValidation("initiator is required")
	}
	if in.CategoryID <= 0 {
		return nil, ErrValidationMeta("invalid field", map[string]string{"category": "required"})
	}

	annotation := strings.TrimSpace(in.Annotation)
	description := strings.TrimSpace(in.Description)
	title := strings.TrimSpace(in.Title)
	if err := checkText("annotation", annotation, annotationBounds); err != nil {
		return nil, err
	}
	if err := checkText("description", description, descriptionBounds); err != nil {
		return nil, err
	}
	if err := checkText("title", title, titleBounds); err != nil {
		return nil, err
	}

	if in.EventDate.IsZero() || in.EventDate.Before(now.Add(CreateLeadTime)) {
		return nil, ErrValidationMeta("event date too early", map[string]string{
			"eventDate": fmt.Sprintf("must be at least %s after creation", CreateLeadTime),
		})
	}

	e := &Event{
		Annotation:        annotation,
		Description:       description,
		Title:             title,
		CategoryID:        in.CategoryID,
		InitiatorID:       initiatorID,
		Location:          in.Location,
		EventDate:         in.EventDate.UTC(),
		CreatedOn:         now.UTC(),
		RequestModeration: true,
		State:             StatePending,
	}
	if in.Paid != nil {
		e.Paid = *in.Paid
	}
	if in.RequestModeration != nil {
		e.RequestModeration = *in.RequestModeration
	}
	if in.ParticipantLimit != nil {
		if *in.ParticipantLimit < 0 {
			return nil, ErrValidation("participantLimit must be >= 0 (0 means unlimited)")
		}
		e.ParticipantLimit = *in.ParticipantLimit
	}
	return e, nil
}

// URI is the public path under which views of the event are counted.
func (e *Event) URI() string { return EventURI(e.ID) }

func EventURI(id int64) string { return fmt.Sprintf("/events/%d", id) }

// IsFull reports whether a limited event has no seat left.
func (e *Event) IsFull() bool {
	return e.ParticipantLimit != 0 && e.ConfirmedRequests >= e.ParticipantLimit
}

// Remaining returns free seats, or -1 when the event is unlimited.
func (e *Event) Remaining() int64 {
	if e.ParticipantLimit == 0 {
		return -1
	}
	if left := e.ParticipantLimit - e.ConfirmedRequests; left > 0 {
		return left
	}
	return 0
}

// Validate checks a patch against the edit rules without touching the event.
func (p Patch) Validate(e *Event, now time.Time) error {
	if p.EventDate != nil && p.EventDate.Before(now.Add(EditLeadTime)) {
		return ErrValidationMeta("event date too early", map[string]string{
			"eventDate": fmt.Sprintf("must be at least %s from now", EditLeadTime),
		})
	}
	if v, ok := nonBlank(p.Annotation); ok {
		if err := checkText("annotation", v, annotationBounds); err != nil {
			return err
		}
	}
	if v, ok := nonBlank(p.Description); ok {
		if err := checkText("description", v, descriptionBounds); err != nil {
			return err
		}
	}
	if v, ok := nonBlank(p.Title); ok {
		if err := checkText("title", v, titleBounds); err != nil {
			return err
		}
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return ErrValidationMeta("invalid field", map[string]string{"category": "must be positive"})
	}
	if p.ParticipantLimit != nil {
		if *p.ParticipantLimit < 0 {
			return ErrValidation("participantLimit must be >= 0 (0 means unlimited)")
		}
		if *p.ParticipantLimit != 0 && *p.ParticipantLimit < e.ConfirmedRequests {
			return ErrConflict("participantLimit is below confirmed requests")
		}
	}
	return nil
}

// ApplyPatch validates and applies p.
func (e *Event) ApplyPatch(p Patch, now time.Time) error {
	if err := p.Validate(e, now); err != nil {
		return err
	}
	if p.EventDate != nil {
		e.EventDate = p.EventDate.UTC()
	}
	if v, ok := nonBlank(p.Annotation); ok {
		e.Annotation = v
	}
	if v, ok := nonBlank(p.Description); ok {
		e.Description = v
	}
	if v, ok := nonBlank(p.Title); ok {
		e.Title = v
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		e.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		e.RequestModeration = *p.RequestModeration
	}
	return nil
}

// ApplyUserAction runs an initiator state change. Published events are frozen for their initiator.
func (e *Event) ApplyUserAction(a UserAction) error {
	if !a.Valid() {
		return ErrValidationMeta("invalid field", map[string]string{"stateAction": string(a)})
	}
	if e.State == StatePublished {
		return ErrConflict("published event cannot be changed by its initiator")
	}
	switch a {
	case UserActionSendToReview:
		e.State = StatePending
	case UserActionCancelReview:
		e.State = StateCanceled
	}
	return nil
}

func (e *Event) Publish(now time.Time) error {
	if e.State != StatePending {
		return ErrConflict("only pending event can be published")
	}
	if e.EventDate.Before(now.Add(EditLeadTime)) {
		return ErrValidationMeta("event date too early", map[string]string{
			"eventDate": fmt.Sprintf("must be at least %s from now to publish", EditLeadTime),
		})
	}
	t := now.UTC()
	e.State = StatePublished
	e.PublishedOn = &t
	return nil
}

func (e *Event) Reject() error {
	if e.State == StatePublished {
		return ErrConflict("published event cannot be rejected")
	}
	e.State = StateCanceled
	e.PublishedOn = nil
	return nil
}

func (e *Event) ApplyAdminAction(a AdminAction, now time.Time) error {
	switch a {
	case AdminActionNone:
		return nil
	case AdminActionPublish:
		return e.Publish(now)
	case AdminActionReject:
		return e.Reject()
	default:
		return ErrValidationMeta("invalid field", map[string]string{"stateAction": string(a)})
	}
}

func checkText(field, v string, b textBounds) error {
	n := utf8.RuneCountInString(v)
	if n < b.min || n > b.max {
		return ErrValidationMeta("invalid field", map[string]string{
			field: fmt.Sprintf("length must be between %d and %d", b.min, b.max),
		})
	}
	return nil
}

func nonBlank(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	v := strings.TrimSpace(*p)
	return v, v != ""
}
