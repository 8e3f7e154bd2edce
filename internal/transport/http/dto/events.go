package dto

type LocationDto struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type NewEventReq struct {
	Annotation        string       `json:"annotation" validate:"required,min=20,max=2000"`
	Category          int64        `json:"category" validate:"required,gt=0"`
	Description       string       `json:"description" validate:"required,min=20,max=7000"`
	EventDate         *DateTime    `json:"eventDate" validate:"required"`
	Location          *LocationDto `json:"location" validate:"required"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int64       `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
	Title             string       `json:"title" validate:"required,min=3,max=120"`
}

// UpdateEventReq is shared by the initiator and admin PATCH bodies.
// Text bounds are checked after blank values are dropped.
type UpdateEventReq struct {
	Annotation        *string      `json:"annotation"`
	Category          *int64       `json:"category" validate:"omitempty,gt=0"`
	Description       *string      `json:"description"`
	EventDate         *DateTime    `json:"eventDate"`
	Location          *LocationDto `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int64       `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
	StateAction       string       `json:"stateAction"`
	Title             *string      `json:"title"`
}

type EventFullResp struct {
	ID                int64       `json:"id"`
	Annotation        string      `json:"annotation"`
	Category          int64       `json:"category"`
	ConfirmedRequests int64       `json:"confirmedRequests"`
	CreatedOn         DateTime    `json:"createdOn"`
	Description       string      `json:"description"`
	EventDate         DateTime    `json:"eventDate"`
	Initiator         int64       `json:"initiator"`
	Location          LocationDto `json:"location"`
	Paid              bool        `json:"paid"`
	ParticipantLimit  int64       `json:"participantLimit"`
	PublishedOn       *DateTime   `json:"publishedOn,omitempty"`
	RequestModeration bool        `json:"requestModeration"`
	State             string      `json:"state"`
	Title             string      `json:"title"`
	Views             int64       `json:"views"`
}

type EventShortResp struct {
	ID                int64    `json:"id"`
	Annotation        string   `json:"annotation"`
	Category          int64    `json:"category"`
	ConfirmedRequests int64    `json:"confirmedRequests"`
	EventDate         DateTime `json:"eventDate"`
	Initiator         int64    `json:"initiator"`
	Paid              bool     `json:"paid"`
	Title             string   `json:"title"`
	Views             int64    `json:"views"`
}
