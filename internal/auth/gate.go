// Package auth resolves request identity. Sessions are HS256 JWTs carried
// in an HttpOnly cookie or an Authorization: Bearer header.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finance-sim/internal/model"
)

// CookieName is the session cookie.
const CookieName = "session"

const issuer = "finance-sim"

// ErrUnauthenticated is returned when a request carries no valid session.
var ErrUnauthenticated error = &model.Failure{Kind: model.KindUnauthenticated, Message: "login required"}

// Gate issues and verifies session tokens.
type Gate struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewGate creates a gate signing with secret. Tokens expire after ttl.
func NewGate(secret string, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Gate{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a session token for userID and returns it with its expiry.
func (g *Gate) Issue(userID int64) (string, time.Time, error) {
	now := g.now()
	exp := now.Add(g.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, exp, nil
}

// Verify returns the user id in a valid, unexpired token.
func (g *Gate) Verify(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUnauthenticated
	}
	return id, nil
}

// CurrentUser resolves the user id of r from its session cookie, falling
// back to a Bearer token.
func (g *Gate) CurrentUser(r *http.Request) (int64, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return g.Verify(c.Value)
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return g.Verify(strings.TrimPrefix(h, "Bearer "))
	}
	return 0, ErrUnauthenticated
}

// SetCookie writes the session cookie.
func (g *Gate) SetCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (g *Gate) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type ctxKey struct{}

// WithUser stores the authenticated user id in ctx.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserFrom returns the user id stored by WithUser.
func UserFrom(ctx context.Context) (int64, error) {
	if id, ok := ctx.Value(ctxKey{}).(int64); ok {
		return id, nil
	}
	return 0, ErrUnauthenticated
}
