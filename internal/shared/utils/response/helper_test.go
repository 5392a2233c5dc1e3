package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketing/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) (StandardApiResponse, ErrorDetail) {
	t.Helper()
	var body struct {
		StandardApiResponse
		Errors ErrorDetail `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.StandardApiResponse, body.Errors
}

func TestRespondErrorSeatUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, "Failed to reserve seats", &apperrors.SeatUnavailableError{Seats: []string{"A1", "A2"}})

	assert.Equal(t, http.StatusConflict, w.Code)
	resp, detail := decode(t, w)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "SEAT_UNAVAILABLE", detail.Code)
	assert.Equal(t, []string{"A1", "A2"}, detail.Seats)
}

func TestRespondErrorInsufficientCredits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, "Failed to publish event", &apperrors.InsufficientCreditsError{Required: 10, Available: 5})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	_, detail := decode(t, w)
	require.NotNil(t, detail.Required)
	assert.Equal(t, int64(10), *detail.Required)
	assert.Equal(t, int64(5), *detail.Available)
}

func TestRespondErrorHidesInternalMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, "Failed to load ticket", errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	_, detail := decode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", detail.Code)
	assert.Equal(t, "Failed to load ticket", detail.Message)
}
