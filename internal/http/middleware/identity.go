// Package middleware carries the gin middleware shared by API routes.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/crediflow/crediflow/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// externalIDKey is the gin context key holding the caller's identity.
const externalIDKey = "externalID"

// Identity verifies the bearer token and exposes its subject claim as
// the caller's opaque external identity. The engine never interprets
// the subject; it is matched verbatim against users.external_id.
func Identity(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		token, errParse := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(jwtCfg.Secret), nil
		})
		if errParse != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		subject, errSubject := token.Claims.GetSubject()
		if errSubject != nil || strings.TrimSpace(subject) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing subject"})
			return
		}

		c.Set(externalIDKey, subject)
		c.Next()
	}
}

// ExternalID returns the verified external identity, empty if absent.
func ExternalID(c *gin.Context) string {
	v, exists := c.Get(externalIDKey)
	if !exists {
		return ""
	}
	id, ok := v.(string)
	if !ok {
		return ""
	}
	return id
}
