package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/accidentlink/portal/internal/backend"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCreds struct {
	creds map[string]*backend.Credential
}

func (s *stubCreds) Credential(token string) *backend.Credential {
	if cred, ok := s.creds[token]; ok {
		return cred
	}
	cred := backend.NewCredential(token, nil)
	if s.creds == nil {
		s.creds = make(map[string]*backend.Credential)
	}
	s.creds[token] = cred
	return cred
}

func authTestRouter(creds CredentialSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(creds))
	r.GET("/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"token":   BearerToken(c),
			"hasCred": CredentialFrom(c) != nil,
		})
	})
	return r
}

func TestAuthMiddlewareRequiresBearerHeader(t *testing.T) {
	r := authTestRouter(&stubCreds{})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcg=="},
		{"bare token", "sometoken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthMiddlewarePassesTokenThrough(t *testing.T) {
	r := authTestRouter(&stubCreds{})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"abc123"`)
	assert.Contains(t, rec.Body.String(), `"hasCred":true`)
}

func TestAuthMiddlewareRejectsSignedOutCredential(t *testing.T) {
	creds := &stubCreds{}
	creds.Credential("revoked").SignOut()
	r := authTestRouter(creds)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer revoked")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
