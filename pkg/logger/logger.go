package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Create logger
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Reservation and ticket logging methods

// LogSeatsReserved logs a successful seat hold
func (l *Logger) LogSeatsReserved(ctx context.Context, eventID, sessionID string, seatIDs []string, expiresAt time.Time) {
	l.Logger.InfoContext(ctx,
		"Seats Reserved",
		slog.String("event_id", eventID),
		slog.String("session_id", sessionID),
		slog.Any("seat_ids", seatIDs),
		slog.Time("expires_at", expiresAt),
	)
}

// LogReservationRejected logs a hold that lost to another session
func (l *Logger) LogReservationRejected(ctx context.Context, eventID, sessionID string, unavailable []string) {
	l.Logger.InfoContext(ctx,
		"Reservation Rejected",
		slog.String("event_id", eventID),
		slog.String("session_id", sessionID),
		slog.Any("unavailable_seats", unavailable),
	)
}

// LogTicketTransition logs a ticket status change
func (l *Logger) LogTicketTransition(ctx context.Context, ticketID, from, to, reason string) {
	l.Logger.InfoContext(ctx,
		"Ticket Transition",
		slog.String("ticket_id", ticketID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("reason", reason),
	)
}

// LogInventoryInconsistency logs a paid ticket whose seats could not be occupied.
// These entries page the on-call operator.
func (l *Logger) LogInventoryInconsistency(ctx context.Context, ticketID, paymentID string, missingSeats []string, reason string) {
	l.Logger.ErrorContext(ctx,
		"Inventory Inconsistency",
		slog.String("ticket_id", ticketID),
		slog.String("payment_id", paymentID),
		slog.Any("missing_seats", missingSeats),
		slog.String("reason", reason),
		slog.Bool("manual_action_required", true),
	)
}

// LogSweep logs the outcome of an expiry sweep
func (l *Logger) LogSweep(ctx context.Context, releasedSeats, failedTickets, errs int, duration time.Duration) {
	l.Logger.InfoContext(ctx,
		"Expiry Sweep Completed",
		slog.Int("released_seats", releasedSeats),
		slog.Int("failed_tickets", failedTickets),
		slog.Int("errors", errs),
		slog.Duration("duration", duration),
	)
}

// LogEventPublished logs an event publish with the credits it consumed
func (l *Logger) LogEventPublished(ctx context.Context, eventID, userID string, credits int64) {
	l.Logger.InfoContext(ctx,
		"Event Published",
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.Int64("credits", credits),
	)
}

// Security logging methods

// LogWebhookRejected logs a webhook that failed signature verification
func (l *Logger) LogWebhookRejected(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Webhook Rejected",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
