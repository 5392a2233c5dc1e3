package ratelimit

import (
	"context"
	"fmt"
	"time"

	"ticketing/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimitType string

const (
	RateLimitTypeDefault     RateLimitType = "default"
	RateLimitTypePublic      RateLimitType = "public"
	RateLimitTypeReservation RateLimitType = "reservation"
	RateLimitTypePayment     RateLimitType = "payment"
	RateLimitTypeWebhook     RateLimitType = "webhook"
	RateLimitTypeAdmin       RateLimitType = "admin"
	RateLimitTypeHealth      RateLimitType = "health"
)

type Config struct {
	Enabled             bool          `json:"enabled"`
	WindowDuration      time.Duration `json:"window_duration"`
	DefaultRequests     int           `json:"default_requests"`
	PublicRequests      int           `json:"public_requests"`
	ReservationRequests int           `json:"reservation_requests"`
	PaymentRequests     int           `json:"payment_requests"`
	WebhookRequests     int           `json:"webhook_requests"`
	AdminRequests       int           `json:"admin_requests"`
	WhitelistedIPs      []string      `json:"whitelisted_ips"`
}

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// sliding window over a sorted set scored in milliseconds
const luaSlidingWindow = `
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window_seconds = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

local current_count = redis.call('ZCARD', key)
if current_count >= limit then
	redis.call('EXPIRE', key, window_seconds)
	return {current_count + 1, 0}
end

redis.call('ZADD', key, now, member)
redis.call('EXPIRE', key, window_seconds)

return {current_count + 1, limit - current_count - 1}
`

var slidingWindowScript = redis.NewScript(luaSlidingWindow)

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client      *redis.Client
	config      *Config
	whitelisted map[string]bool
	now         func() time.Time
	newMember   func() string
}

func NewRateLimiter(client *redis.Client, config *Config) *RateLimiter {
	whitelisted := make(map[string]bool, len(config.WhitelistedIPs))
	for _, ip := range config.WhitelistedIPs {
		whitelisted[ip] = true
	}
	return &RateLimiter{
		client:      client,
		config:      config,
		whitelisted: whitelisted,
		now:         time.Now,
		newMember:   uuid.NewString,
	}
}

// IsAllowed checks if a request from clientIP fits in the window of its class
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := r.getLimit(limitType)
	if !r.config.Enabled || r.client == nil || r.whitelisted[clientIP] {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: r.now().Add(r.config.WindowDuration).Unix(),
		}, nil
	}

	key := fmt.Sprintf("%s:%s:%s", constants.RATE_LIMIT_PREFIX, clientIP, limitType)
	return r.checkLimit(ctx, key, limit)
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int) (*Result, error) {
	now := r.now()
	windowStart := now.Add(-r.config.WindowDuration)
	windowSeconds := int64(r.config.WindowDuration.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	values, err := slidingWindowScript.Run(ctx, r.client, []string{key},
		windowStart.UnixMilli(),
		now.UnixMilli(),
		limit,
		windowSeconds,
		r.newMember(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis eval failed: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected redis response: %v", values)
	}

	return &Result{
		Allowed:   int(values[0]) <= limit,
		Limit:     limit,
		Remaining: int(values[1]),
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}, nil
}

func (r *RateLimiter) getLimit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypePublic:
		return r.config.PublicRequests
	case RateLimitTypeReservation:
		return r.config.ReservationRequests
	case RateLimitTypePayment:
		return r.config.PaymentRequests
	case RateLimitTypeWebhook:
		return r.config.WebhookRequests
	case RateLimitTypeAdmin:
		return r.config.AdminRequests
	case RateLimitTypeHealth:
		// probes are never limited
		return 0
	default:
		return r.config.DefaultRequests
	}
}
