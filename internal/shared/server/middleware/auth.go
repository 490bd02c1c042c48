package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/shared/auth"
	"pait-backend/internal/shared/server/respond"
)

const (
	subjectIDKey   = "subjectId"
	subjectTierKey = "subjectTier"
	subjectNameKey = "subjectName"
)

// Auth validates JWTs or guest headers and stores the subject identity in
// context. Logged-in subjects carry their tier in the token; guests are
// always free tier.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/auth/google/") {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(subjectIDKey, claims.Sub)
			c.Set(subjectTierKey, normalizeTier(claims.Tier))
			if claims.Name != "" {
				c.Set(subjectNameKey, claims.Name)
			}
			c.Set("isGuest", false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(subjectIDKey, "guest:"+guestID)
		c.Set(subjectTierKey, "free")
		c.Set("isGuest", true)
		c.Next()
	}
}

// SubjectIDFromContext fetches the subject ID stored by Auth middleware.
func SubjectIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(subjectIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// TierFromContext fetches the subject tier stored by Auth middleware.
func TierFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(subjectTierKey)
	if tier, ok := val.(string); ok {
		return tier
	}
	return ""
}

// IsGuest reports whether the request carries a guest identity.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	val, _ := c.Get("isGuest")
	guest, ok := val.(bool)
	return ok && guest
}

func normalizeTier(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "vip":
		return "vip"
	case "staff":
		return "staff"
	default:
		return "free"
	}
}
