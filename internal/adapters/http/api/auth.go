package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type viewerKey struct{}

// ViewerID returns the authenticated viewer id, or "" for anonymous requests.
func ViewerID(ctx context.Context) string {
	id, _ := ctx.Value(viewerKey{}).(string)
	return id
}

// WithViewerID stores a viewer id on ctx.
func WithViewerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, viewerKey{}, id)
}

// Authenticator verifies HS256 bearer tokens carrying an "id" claim.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator returns an authenticator for secret. An empty secret
// rejects every token.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Issue signs a token for viewerID that expires after ttl.
func (a *Authenticator) Issue(viewerID string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: no signing secret", ErrUnauthorized)
	}
	claims := jwt.MapClaims{
		"id":  viewerID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns the viewer id it carries.
func (a *Authenticator) Verify(token string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: authentication disabled", ErrUnauthorized)
	}
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrUnauthorized)
	}

	// Issuers disagree on whether ids are numbers or strings.
	switch id := claims["id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		return strconv.FormatInt(int64(id), 10), nil
	}
	return "", fmt.Errorf("%w: missing id claim", ErrUnauthorized)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Optional attaches the viewer id when a valid token is present. Missing,
// invalid and expired tokens all degrade to an anonymous request.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := bearer(r); tok != "" {
			if id, err := a.Verify(tok); err == nil {
				r = r.WithContext(WithViewerID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Required rejects requests without a valid token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearer(r)
		if tok == "" {
			writeError(w, r, Wrap("api.auth", ErrUnauthorized))
			return
		}
		id, err := a.Verify(tok)
		if err != nil {
			writeError(w, r, Wrap("api.auth", err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithViewerID(r.Context(), id)))
	})
}
