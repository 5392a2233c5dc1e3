package middleware

import (
	"net/http"
	"strings"

	"ticketing/internal/shared/config"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	RoleUser      = "USER"
	RoleOrganizer = "ORGANIZER"
	RoleStaff     = "STAFF"
	RoleAdmin     = "ADMIN"

	HeaderRequestID = "X-Request-ID"
	HeaderSessionID = "X-Session-ID"
)

// JWTAuth validates access tokens issued by the account service
func JWTAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		claims, ok := parseAccessToken(authHeader, cfg.JWT.Secret)
		if !ok {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth validates a token if present but doesn't require it
func OptionalAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseAccessToken(c.GetHeader("Authorization"), cfg.JWT.Secret); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func parseAccessToken(header, secret string) (jwt.MapClaims, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims jwt.MapClaims) {
	c.Set("user_id", claims["user_id"])
	c.Set("user_email", claims["email"])
	c.Set("user_role", claims["role"])
}

// RequireRoles checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("user_role")
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// RequireAdmin requires the admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(RoleAdmin)
}

// RequestID propagates or assigns a request id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// UserID returns the authenticated user id
func UserID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil, false
	}
	s, _ := raw.(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// UserRole returns the authenticated user's role, or "" when anonymous
func UserRole(c *gin.Context) string {
	raw, _ := c.Get("user_role")
	role, _ := raw.(string)
	return role
}

// SessionID resolves the browser session that owns a seat hold. The body
// value wins over the header.
func SessionID(c *gin.Context, fromBody string) string {
	if s := strings.TrimSpace(fromBody); s != "" {
		return s
	}
	return strings.TrimSpace(c.GetHeader(HeaderSessionID))
}
