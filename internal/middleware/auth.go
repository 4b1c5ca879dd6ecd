package middleware

import (
	"net/http"
	"strings"

	"github.com/accidentlink/portal/internal/backend"
	"github.com/gin-gonic/gin"
)

const (
	bearerTokenKey = "bearerToken"
	credentialKey  = "credential"
)

// CredentialSource resolves a bearer token to its shared credential.
type CredentialSource interface {
	Credential(token string) *backend.Credential
}

// AuthMiddleware requires a bearer token and resolves its credential.
// The portal never verifies identity itself; the backend of record does
// that on every forwarded call. A credential that has already been
// signed out is rejected immediately.
func AuthMiddleware(creds CredentialSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		cred := creds.Credential(parts[1])
		if cred.SignedOut() || cred.Expired() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "credential expired, sign in again"})
			c.Abort()
			return
		}

		c.Set(bearerTokenKey, parts[1])
		c.Set(credentialKey, cred)

		c.Next()
	}
}

// BearerToken returns the raw token set by AuthMiddleware.
func BearerToken(c *gin.Context) string {
	return c.GetString(bearerTokenKey)
}

// CredentialFrom returns the credential set by AuthMiddleware.
func CredentialFrom(c *gin.Context) *backend.Credential {
	if v, ok := c.Get(credentialKey); ok {
		if cred, ok := v.(*backend.Credential); ok {
			return cred
		}
	}
	return nil
}
