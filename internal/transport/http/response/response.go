package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
	zlog "github.com/rs/zerolog/log"
)

// Envelope is the success body: {"data": ...}
type Envelope struct {
	Data any `json:"data,omitempty"`
}

// ErrorBody is {"error":{"code","message","meta","request_id"},"timestamp":"..."}
type ErrorBody struct {
	Error     ErrorPayload `json:"error"`
	Timestamp string       `json:"timestamp"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Data(w http.ResponseWriter, status int, payload any) {
	JSON(w, status, Envelope{Data: payload})
}

func Fail(w http.ResponseWriter, status int, code, message string, meta map[string]string, requestID string) {
	JSON(w, status, ErrorBody{
		Error: ErrorPayload{
			Code:      code,
			Message:   message,
			Meta:      meta,
			RequestID: requestID,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Err renders err. AppErrors keep their code and meta, caller deadlines and
// cancellations become 503 unavailable, anything else is a logged 500.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	requestID := appCtx.GetRequestID(r.Context())

	var ae *domain.AppError
	if err != nil && errors.As(err, &ae) {
		Fail(w, StatusFromCode(ae.Code), string(ae.Code), ae.Message, ae.Meta, requestID)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		zlog.Warn().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("request aborted")
		Fail(w, http.StatusServiceUnavailable, string(domain.CodeUnavailable), "request deadline exceeded", nil, requestID)
		return
	}

	// keep details in logs only
	zlog.Error().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("unhandled error")
	Fail(w, http.StatusInternalServerError, "internal_error", "internal error", nil, requestID)
}

func StatusFromCode(code domain.ErrCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
