package backend

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/accidentlink/portal/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

// Credential is a bearer token plus the process-wide sign-out hook.
// SignOut fires the hook exactly once no matter how many concurrent
// calls observe a 401 on the same credential.
type Credential struct {
	token     string
	expiresAt time.Time
	signedOut atomic.Bool
	onSignOut func()
}

// NewCredential wraps a bearer token. The token's exp claim is read
// without signature verification so a locally-expired credential can be
// rejected before any network round trip; identity verification itself
// belongs to the backend of record. Opaque non-JWT tokens simply skip
// the local check.
func NewCredential(token string, onSignOut func()) *Credential {
	cred := &Credential{token: token, onSignOut: onSignOut}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			cred.expiresAt = exp.Time
		}
	}
	return cred
}

// Token returns the raw bearer token.
func (c *Credential) Token() string { return c.token }

// Expired reports whether the token carried an exp claim that has
// already passed.
func (c *Credential) Expired() bool {
	return !c.expiresAt.IsZero() && time.Now().After(c.expiresAt)
}

// SignOut marks the credential invalid and fires the sign-out hook.
// Safe to call from concurrent requests; the hook runs at most once.
func (c *Credential) SignOut() {
	if c.signedOut.CompareAndSwap(false, true) && c.onSignOut != nil {
		c.onSignOut()
	}
}

// SignedOut reports whether the credential has been invalidated.
func (c *Credential) SignedOut() bool { return c.signedOut.Load() }

type credentialKey struct{}

// WithCredential attaches the caller's credential to a request context.
func WithCredential(ctx context.Context, cred *Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, cred)
}

// CredentialFrom extracts the credential attached by WithCredential.
func CredentialFrom(ctx context.Context) *Credential {
	cred, _ := ctx.Value(credentialKey{}).(*Credential)
	return cred
}

// authTransport decorates every outbound call: it attaches the bearer
// header, fast-fails credentials that are locally expired or already
// signed out, and converts any 401-class response into the process-wide
// auth-expired signal.
type authTransport struct {
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cred := CredentialFrom(req.Context())
	if cred != nil {
		if cred.SignedOut() {
			return nil, apperr.ErrAuthExpired
		}
		if cred.Expired() {
			cred.SignOut()
			return nil, apperr.ErrAuthExpired
		}
		req.Header.Set("Authorization", "Bearer "+cred.Token())
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && cred != nil {
		cred.SignOut()
	}
	return resp, nil
}
