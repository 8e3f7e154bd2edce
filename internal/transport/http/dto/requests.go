package dto

type BulkStatusReq struct {
	RequestIDs []int64 `json:"requestIds" validate:"required,min=1,dive,gt=0"`
	Status     string  `json:"status" validate:"required,oneof=CONFIRMED REJECTED"`
}

type RequestResp struct {
	ID        int64    `json:"id"`
	Requester int64    `json:"requester"`
	Event     int64    `json:"event"`
	Created   DateTime `json:"created"`
	Status    string   `json:"status"`
}

type BulkStatusResp struct {
	ConfirmedRequests []RequestResp `json:"confirmedRequests"`
	RejectedRequests  []RequestResp `json:"rejectedRequests"`
}
