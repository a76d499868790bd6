package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-sim/internal/model"
)

func TestIssueVerify(t *testing.T) {
	g := NewGate("secret", time.Hour)

	token, exp, err := g.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := g.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = NewGate("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = g.Verify("garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	kind, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.KindUnauthenticated, kind)
}

func TestVerifyExpired(t *testing.T) {
	g := NewGate("secret", time.Minute)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return issued }
	token, _, err := g.Issue(7)
	require.NoError(t, err)

	g.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = g.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCurrentUser(t *testing.T) {
	g := NewGate("secret", time.Hour)
	token, exp, err := g.Issue(3)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = g.CurrentUser(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	rec := httptest.NewRecorder()
	g.SetCookie(rec, r, token, exp)
	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)

	withCookie := httptest.NewRequest(http.MethodGet, "/", nil)
	withCookie.AddCookie(cookie)
	id, err := g.CurrentUser(withCookie)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	bearer := httptest.NewRequest(http.MethodGet, "/", nil)
	bearer.Header.Set("Authorization", "Bearer "+token)
	id, err = g.CurrentUser(bearer)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	rec = httptest.NewRecorder()
	g.ClearCookie(rec)
	assert.True(t, rec.Result().Cookies()[0].MaxAge < 0)
}

func TestUserContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := UserFrom(r.Context())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	id, err := UserFrom(WithUser(r.Context(), 9))
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))

	long := strings.Repeat("a", 100)
	hash, err = HashPassword(long)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, long))
}

func TestTOTP(t *testing.T) {
	key, err := NewTOTP("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, key.Secret)
	assert.Contains(t, key.URL, "otpauth://totp/")

	code, err := totp.GenerateCode(key.Secret, time.Now())
	require.NoError(t, err)
	assert.True(t, ValidateTOTP(code, key.Secret))
	assert.False(t, ValidateTOTP("", key.Secret))
	assert.False(t, ValidateTOTP("000000x", key.Secret))
}
