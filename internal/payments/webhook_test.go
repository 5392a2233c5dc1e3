package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status string
		want   outcome
	}{
		{"approved", outcomePaid},
		{"APPROVED", outcomePaid},
		{" succeeded ", outcomePaid},
		{"rejected", outcomeFailed},
		{"cancelled", outcomeFailed},
		{"canceled", outcomeFailed},
		{"expired", outcomeFailed},
		{"in_process", outcomePending},
		{"pending", outcomePending},
		{"", outcomePending},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatus(tt.status))
		})
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"payment","data":{"id":"123"}}`)
	sig := Sign("s3cret", body)

	assert.True(t, VerifySignature("s3cret", body, sig))
	assert.True(t, VerifySignature("s3cret", body, "sha256="+sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("s3cret", []byte(`{}`), sig))
	assert.False(t, VerifySignature("s3cret", body, "not-hex"))
	assert.False(t, VerifySignature("s3cret", body, ""))
}

func TestWebhookPayloadPaymentID(t *testing.T) {
	p := WebhookPayload{PaymentID: "direct"}
	p.Data.ID = "nested"
	assert.Equal(t, "direct", p.paymentID())

	p.PaymentID = ""
	assert.Equal(t, "nested", p.paymentID())

	assert.True(t, (&WebhookPayload{}).isPaymentEvent())
	assert.True(t, (&WebhookPayload{Type: "Payment"}).isPaymentEvent())
	assert.False(t, (&WebhookPayload{Type: "merchant_order"}).isPaymentEvent())
}
