package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ticketing/internal/shared/apperrors"

	"github.com/shopspring/decimal"
)

// Gateway is the payment provider's REST API
type Gateway interface {
	GetPayment(ctx context.Context, paymentID string) (*ProviderPayment, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

type ProviderPayment struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	Amount            decimal.Decimal `json:"transaction_amount"`
	Currency          string          `json:"currency_id"`
}

type CheckoutItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency_id"`
}

type CheckoutRequest struct {
	Items             []CheckoutItem    `json:"items"`
	ExternalReference string            `json:"external_reference"`
	Payer             map[string]string `json:"payer,omitempty"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	ExpiresAt         *time.Time        `json:"expiration_date_to,omitempty"`
}

type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"init_point"`
}

type httpGateway struct {
	baseURL     string
	accessToken string
	hc          *http.Client
}

// NewHTTPGateway returns a Gateway speaking JSON over HTTP with bearer auth
func NewHTTPGateway(baseURL, accessToken string, hc *http.Client) Gateway {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpGateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		hc:          hc,
	}
}

func (g *httpGateway) GetPayment(ctx context.Context, paymentID string) (*ProviderPayment, error) {
	var payment ProviderPayment
	endpoint := fmt.Sprintf("%s/v1/payments/%s", g.baseURL, url.PathEscape(paymentID))
	if err := g.do(ctx, http.MethodGet, endpoint, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (g *httpGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := g.do(ctx, http.MethodPost, g.baseURL+"/checkout/preferences", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (g *httpGateway) do(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode provider request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	hr, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrProviderCommunication, err)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("Authorization", "Bearer "+g.accessToken)
	if in != nil {
		hr.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.hc.Do(hr)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrProviderCommunication, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", apperrors.ErrProviderCommunication, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d: %s", apperrors.ErrProviderCommunication, method, endpoint, resp.StatusCode, truncate(string(raw), 200))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperrors.ErrProviderCommunication, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
