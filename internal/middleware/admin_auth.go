package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AdminAuthConfig holds the accepted admin credentials. Either may be empty.
type AdminAuthConfig struct {
	// Token is a static API token compared in constant time.
	Token string
	// JWTSecret verifies HS256 bearer tokens carrying role=admin.
	JWTSecret []byte
}

// ContextOperatorKey holds who made the request: "api-token" or the JWT subject.
const ContextOperatorKey = "operator"

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func (cfg AdminAuthConfig) validateToken(tok string) bool {
	if cfg.Token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok), []byte(cfg.Token)) == 1
}

// validateJWT returns the subject of a valid admin JWT.
func (cfg AdminAuthConfig) validateJWT(tok string) (string, bool) {
	if len(cfg.JWTSecret) == 0 {
		return "", false
	}
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (any, error) {
		return cfg.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return "", false
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		sub = "admin"
	}
	return sub, true
}

// AdminAuth rejects requests without a valid admin credential. With no credential
// configured every admin request is refused.
func AdminAuth(cfg AdminAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if cfg.validateToken(tok) {
			c.Set(ContextOperatorKey, "api-token")
			c.Next()
			return
		}
		if sub, ok := cfg.validateJWT(tok); ok {
			c.Set(ContextOperatorKey, sub)
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
