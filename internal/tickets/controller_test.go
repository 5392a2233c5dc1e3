package tickets_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/tickets"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "tickets-test-secret"

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
	cfg := &config.Config{JWT: config.JWTConfig{Secret: jwtSecret}}
	tickets.SetupTicketRoutes(r.Group("/api/v1"), tickets.NewController(f.tickets), cfg)
	return r
}

func accessToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type":    "access",
		"role":    role,
		"user_id": "5b0c2f0e-8d7a-4f7e-9a55-2b1f3c4d5e6f",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return token
}

func do(r http.Handler, method, path string, headers map[string]string, body any) (*httptest.ResponseRecorder, apiResponse) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestCreateTicketEndpointOmitsQRCode(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(t, f)
	f.hold(t, "session-http-1", "A1", "A2")

	w, resp := do(r, http.MethodPost, "/api/v1/tickets", map[string]string{middleware.HeaderSessionID: "session-http-1"}, gin.H{
		"event_id":       f.eventID.String(),
		"seat_ids":       []string{"A1", "A2"},
		"buyer_info":     gin.H{"name": "Ada", "email": "ada@example.com"},
		"expected_price": "80",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.NotContains(t, data, "qr_code")
	assert.Equal(t, string(tickets.StatusPending), data["status"])
	assert.Equal(t, "80", data["price"])
}

func TestGetTicketEndpointRequiresOwnerOrStaff(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(t, f)
	f.hold(t, "session-owner", "B1")
	ticket, err := f.create("session-owner", "B1")
	require.NoError(t, err)
	path := "/api/v1/tickets/" + ticket.ID.String()

	hidden := map[string]map[string]string{
		"anonymous":      nil,
		"other session":  {middleware.HeaderSessionID: "session-stranger"},
		"buyer role jwt": {"Authorization": "Bearer " + accessToken(t, middleware.RoleUser)},
		"forged token":   {"Authorization": "Bearer " + accessToken(t, middleware.RoleAdmin) + "x"},
	}
	for name, headers := range hidden {
		t.Run(name, func(t *testing.T) {
			w, resp := do(r, http.MethodGet, path, headers, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "error", resp.Status)
			assert.NotContains(t, w.Body.String(), "ada@example.com")
		})
	}

	visible := map[string]struct {
		path    string
		headers map[string]string
	}{
		"session header": {path, map[string]string{middleware.HeaderSessionID: "session-owner"}},
		"session query":  {path + "?session_id=session-owner", nil},
		"staff jwt":      {path, map[string]string{"Authorization": "Bearer " + accessToken(t, middleware.RoleStaff)}},
		"organizer jwt":  {path, map[string]string{"Authorization": "Bearer " + accessToken(t, middleware.RoleOrganizer)}},
	}
	for name, tc := range visible {
		t.Run(name, func(t *testing.T) {
			w, resp := do(r, http.MethodGet, tc.path, tc.headers, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var got tickets.TicketResponse
			require.NoError(t, json.Unmarshal(resp.Data, &got))
			assert.Equal(t, ticket.ID, got.ID)
			assert.Equal(t, "ada@example.com", got.BuyerInfo.Email)
			assert.Empty(t, got.QRCode, "pending tickets never expose the QR code")
		})
	}
}
