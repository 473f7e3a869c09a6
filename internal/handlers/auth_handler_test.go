package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaibs3/careportal/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func registerBody() map[string]string {
	return map[string]string{
		"firstName": "Rivka",
		"lastName":  "Cohen",
		"email":     "Rivka@Example.org",
		"dob":       "1941-03-09",
		"gender":    "female",
		"phone":     "+972-50-0000000",
		"password":  "s3cret-pass",
	}
}

func TestAuthHandler_RegisterLoginMeLogout(t *testing.T) {
	env := newTestEnv(t)

	// Register
	w := env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/register", registerBody()))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Duplicate email differs only in case
	dup := registerBody()
	dup["email"] = "rivka@example.org"
	w = env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/register", dup))
	require.Equal(t, http.StatusConflict, w.Code)
	require.JSONEq(t, `{"error":"Email already exists"}`, w.Body.String())

	// Wrong password
	w = env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/login", map[string]string{
		"email": "rivka@example.org", "password": "nope",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Login sets the session cookie
	w = env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/login", map[string]string{
		"email": "rivka@example.org", "password": "s3cret-pass",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "Login successful", decode[map[string]interface{}](t, w)["message"])

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session, "expected session cookie")
	assert.True(t, session.HttpOnly)

	// Me
	req := httptest.NewRequest(http.MethodGet, apiPrefix+"/me", nil)
	req.AddCookie(session)
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[map[string]interface{}](t, w)
	assert.Equal(t, "rivka@example.org", me["email"])
	assert.Equal(t, "Rivka", me["firstName"])
	assert.NotContains(t, me, "password_hash")
	assert.NotContains(t, me, "password")

	// Logout expires the cookie
	w = env.do(httptest.NewRequest(http.MethodPost, apiPrefix+"/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Equal(t, auth.CookieName, cleared[0].Name)
	assert.True(t, cleared[0].MaxAge < 0)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	body := registerBody()
	delete(body, "firstName")
	delete(body, "phone")

	w := env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/register", body))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing required fields: First Name, Phone Number", decode[errorBody](t, w).Error)
}

func TestAuthHandler_InvalidCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, apiPrefix+"/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "forged"})
	w := env.do(req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/register", registerBody()))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/forgot-password", map[string]string{"email": "nobody@example.org"}))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/forgot-password", map[string]string{"email": "rivka@example.org"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(jsonRequest(t, http.MethodPost, apiPrefix+"/reset-password", map[string]string{"token": "bogus", "newPassword": "x"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"Invalid or expired token"}`, w.Body.String())
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"healthy", nil, http.StatusOK},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			NewHealthHandler(stubPinger{err: tt.err}).RegisterRoutes(env.router, zap.NewNop())

			w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tt.status, w.Code)
		})
	}
}
