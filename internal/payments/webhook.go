package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type outcome int

const (
	outcomePending outcome = iota
	outcomePaid
	outcomeFailed
)

// classifyStatus folds the provider's status vocabulary into the three
// outcomes the ticket lifecycle cares about.
func classifyStatus(status string) outcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved", "paid", "settlement", "capture", "accredited", "succeeded":
		return outcomePaid
	case "rejected", "cancelled", "canceled", "failed", "expired", "deny", "denied":
		return outcomeFailed
	default:
		return outcomePending
	}
}

// WebhookPayload is the provider's notification body. Some deliveries carry
// only the payment id, in which case the status is fetched from the API.
type WebhookPayload struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Action            string `json:"action"`
	PaymentID         string `json:"payment_id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	Data              struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (p *WebhookPayload) paymentID() string {
	if p.PaymentID != "" {
		return p.PaymentID
	}
	return p.Data.ID
}

func (p *WebhookPayload) isPaymentEvent() bool {
	return p.Type == "" || strings.EqualFold(p.Type, "payment")
}

// Sign computes the hex HMAC-SHA256 of body
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature accepts "sha256=<hex>" or bare hex signatures
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	return hmac.Equal(got, want)
}
