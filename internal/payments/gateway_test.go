package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketing/internal/shared/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewayGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/pay-42", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pay-42","status":"approved","external_reference":"ticket-1","transaction_amount":80.5,"currency_id":"USD"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/", "token-1", srv.Client())
	p, err := gw.GetPayment(context.Background(), "pay-42")
	require.NoError(t, err)

	assert.Equal(t, "approved", p.Status)
	assert.Equal(t, "ticket-1", p.ExternalReference)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("80.5")))
}

func TestHTTPGatewayCreateCheckout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CheckoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ticket-1", req.ExternalReference)
		require.Len(t, req.Items, 1)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/checkout/pref-1"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "token-1", nil)
	session, err := gw.CreateCheckout(context.Background(), CheckoutRequest{
		ExternalReference: "ticket-1",
		Items:             []CheckoutItem{{ID: "ticket-1", Title: "Seats A1", Quantity: 1, UnitPrice: decimal.NewFromInt(40)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", session.ID)
	assert.Equal(t, "https://pay.example/checkout/pref-1", session.CheckoutURL)
}

func TestHTTPGatewayErrorsAreProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusServiceUnavailable)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"payment not found"}`, http.StatusNotFound)
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPGateway(srv.URL, "token", srv.Client()).GetPayment(context.Background(), "p1")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrProviderCommunication)
			assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
		})
	}
}

func TestHTTPGatewayUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPGateway(url, "token", nil).GetPayment(context.Background(), "p1")
	assert.ErrorIs(t, err, apperrors.ErrProviderCommunication)
}
