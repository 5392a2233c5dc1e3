package seats_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketing/internal/seats"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

func newTestRouter(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators())

	r := gin.New()
	seats.SetupSeatRoutes(r.Group("/api/v1"), seats.NewController(f.svc))
	return r
}

func doJSON(r http.Handler, path, session string, body any) (*httptest.ResponseRecorder, apiResponse) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(middleware.HeaderSessionID, session)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestReserveSeatsEndpoint(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(t, f)
	path := "/api/v1/events/" + f.eventID.String() + "/seats/reserve"

	w, resp := doJSON(r, path, "session-http-1", gin.H{"seat_ids": []string{"a1", "A2"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "session-http-1", w.Header().Get(middleware.HeaderSessionID))

	var reserved seats.ReserveResponse
	require.NoError(t, json.Unmarshal(resp.Data, &reserved))
	assert.Equal(t, []string{"A1", "A2"}, reserved.ReservedSeats)
	assert.Equal(t, "session-http-1", reserved.SessionID)

	t.Run("conflict names the blocking seats", func(t *testing.T) {
		w, resp := doJSON(r, path, "session-http-2", gin.H{"seat_ids": []string{"A2", "A3"}})
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "error", resp.Status)

		var detail struct {
			Code  string   `json:"code"`
			Seats []string `json:"seats"`
		}
		require.NoError(t, json.Unmarshal(resp.Errors, &detail))
		assert.Equal(t, "SEAT_UNAVAILABLE", detail.Code)
		assert.Equal(t, []string{"A2"}, detail.Seats)
	})

	t.Run("session is generated when missing", func(t *testing.T) {
		w, _ := doJSON(r, path, "", gin.H{"seat_ids": []string{"B1"}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderSessionID))
	})
}

func TestReserveSeatsEndpointRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(t, f)
	base := "/api/v1/events/" + f.eventID.String() + "/seats/reserve"

	tests := map[string]struct {
		path string
		body any
	}{
		"malformed seat label": {base, gin.H{"seat_ids": []string{"A-1"}}},
		"empty seat list":      {base, gin.H{"seat_ids": []string{}}},
		"hold too short":       {base, gin.H{"seat_ids": []string{"A1"}, "hold_duration_seconds": 5}},
		"event id not a uuid":  {"/api/v1/events/not-a-uuid/seats/reserve", gin.H{"seat_ids": []string{"A1"}}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			w, _ := doJSON(r, tc.path, "session-http-1", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	seat, _ := f.store.Seat(f.eventID, "A1")
	assert.Equal(t, seats.StatusAvailable, seat.Status)
}

func TestReleaseSeatsEndpoint(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(t, f)
	prefix := "/api/v1/events/" + f.eventID.String() + "/seats/"

	w, _ := doJSON(r, prefix+"reserve", "session-http-1", gin.H{"seat_ids": []string{"A1", "A2"}})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(r, prefix+"release", "session-other", gin.H{"seat_ids": []string{"A1"}})
	require.Equal(t, http.StatusOK, w.Code)
	var released seats.ReleaseResponse
	require.NoError(t, json.Unmarshal(resp.Data, &released))
	assert.Zero(t, released.Released)

	w, resp = doJSON(r, prefix+"release", "session-http-1", gin.H{"seat_ids": []string{"A1", "A2"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &released))
	assert.EqualValues(t, 2, released.Released)
}
