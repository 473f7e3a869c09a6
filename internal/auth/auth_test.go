package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret       = "test-jwt-secret"
	testCookieSecret = "test-cookie-secret-0123456789abc"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword("s3cret!", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("s3cret!", "not-a-hash"))
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, err := m.Generate(7, "ann@example.org")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "ann@example.org", claims.Email)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	token, err := m.Generate(7, "ann@example.org")
	require.NoError(t, err)

	other := NewTokenManager("another-secret", time.Hour)
	_, err = other.Parse(token)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(token)
	assert.Error(t, err, "expired")

	_, err = m.Parse("garbage")
	assert.Error(t, err)
}

func newTestAuthenticator() (*Authenticator, *TokenManager, *CookieCodec) {
	tokens := NewTokenManager(testSecret, time.Hour)
	cookies := NewCookieCodec(testCookieSecret, false, time.Hour)
	return NewAuthenticator(tokens, cookies, zap.NewNop()), tokens, cookies
}

func protected(t *testing.T, a *Authenticator) http.Handler {
	return a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		_ = json.NewEncoder(w).Encode(map[string]int64{"id": id})
	}))
}

func TestAuthenticator_ValidCookie(t *testing.T) {
	a, tokens, cookies := newTestAuthenticator()

	token, err := tokens.Generate(42, "x@example.org")
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, cookies.Set(rec, token))

	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	protected(t, a).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42}`, w.Body.String())
}

func TestAuthenticator_MissingCookie(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	w := httptest.NewRecorder()
	protected(t, a).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Access denied, token missing!"}`, w.Body.String())
}

func TestAuthenticator_TamperedCookieIsCleared(t *testing.T) {
	a, tokens, _ := newTestAuthenticator()
	token, err := tokens.Generate(42, "x@example.org")
	require.NoError(t, err)

	// an unsigned raw token is not accepted
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w := httptest.NewRecorder()
	protected(t, a).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, CookieName, cleared[0].Name)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestAuthenticator_SignedButInvalidToken(t *testing.T) {
	a, _, cookies := newTestAuthenticator()

	rec := httptest.NewRecorder()
	require.NoError(t, cookies.Set(rec, "not-a-jwt"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	w := httptest.NewRecorder()
	protected(t, a).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())
}
