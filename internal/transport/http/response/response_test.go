package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErr(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not_found", domain.ErrNotFound("event not found"), http.StatusNotFound, "not_found"},
		{"validation", domain.ErrValidation("invalid title"), http.StatusBadRequest, "validation_error"},
		{"forbidden", domain.ErrForbidden("no access"), http.StatusForbidden, "forbidden"},
		{"conflict", domain.ErrCapacityExhausted(), http.StatusConflict, "conflict"},
		{"unauthorized", domain.ErrUnauthorized("no token"), http.StatusUnauthorized, "unauthorized"},
		{"unavailable", domain.ErrUnavailable("db down"), http.StatusServiceUnavailable, "unavailable"},
		{"wrapped", fmt.Errorf("submit: %w", domain.ErrConflict("dup")), http.StatusConflict, "conflict"},
		{"deadline", fmt.Errorf("find events: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "unavailable"},
		{"canceled", context.Canceled, http.StatusServiceUnavailable, "unavailable"},
		{"generic_error", errors.New("db crash"), http.StatusInternalServerError, "internal_error"},
		{"nil_error", nil, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			req = req.WithContext(appCtx.WithRequestID(req.Context(), "rid-1"))

			Err(rr, req, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, "rid-1", body.Error.RequestID)
			assert.NotEmpty(t, body.Timestamp)
		})
	}
}

func TestErr_KeepsMeta(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/", nil)

	Err(rr, req, domain.ErrNotFoundMeta("requests not found", map[string]string{"missing": "4,9"}))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "4,9", body.Error.Meta["missing"])
}

func TestData(t *testing.T) {
	rr := httptest.NewRecorder()

	Data(rr, http.StatusCreated, map[string]int64{"id": 7})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, float64(7), env.Data.(map[string]any)["id"])
}
