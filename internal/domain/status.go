package domain

type EventState string

const (
	StatePending   EventState = "PENDING"
	StatePublished EventState = "PUBLISHED"
	StateCanceled  EventState = "CANCELED"
)

func (s EventState) Valid() bool {
	return s == StatePending || s == StatePublished || s == StateCanceled
}

// UserAction is the state change an initiator may request alongside an edit.
type UserAction string

const (
	UserActionNone         UserAction = ""
	UserActionSendToReview UserAction = "SEND_TO_REVIEW"
	UserActionCancelReview UserAction = "CANCEL_REVIEW"
)

func (a UserAction) Valid() bool {
	return a == UserActionNone || a == UserActionSendToReview || a == UserActionCancelReview
}

type AdminAction string

const (
	AdminActionNone    AdminAction = ""
	AdminActionPublish AdminAction = "PUBLISH_EVENT"
	AdminActionReject  AdminAction = "REJECT_EVENT"
)

func (a AdminAction) Valid() bool {
	return a == AdminActionNone || a == AdminActionPublish || a == AdminActionReject
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestConfirmed, RequestRejected, RequestCanceled:
		return true
	}
	return false
}

// Active reports whether the request still blocks a new one for the same (requester, event).
func (s RequestStatus) Active() bool { return s.Valid() && s != RequestCanceled }
