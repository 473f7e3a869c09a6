package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaibs3/careportal/internal/accounts"
	"github.com/shaibs3/careportal/internal/archive"
	"github.com/shaibs3/careportal/internal/auth"
	"github.com/shaibs3/careportal/internal/database"
	"github.com/shaibs3/careportal/internal/events"
	"github.com/shaibs3/careportal/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	router     *mux.Router
	tokens     *auth.TokenManager
	cookies    *auth.CookieCodec
	uploadRoot string
	archiveDir string
	notifier   *accounts.LogNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.OpenMemory()
	require.NoError(t, err)

	uploadRoot := t.TempDir()
	archiveDir := filepath.Join(uploadRoot, "archives")
	disk, err := storage.NewDiskStore(archiveDir, archive.PublicPrefix, logger)
	require.NoError(t, err)

	tokens := auth.NewTokenManager("handler-test-secret", time.Hour)
	cookies := auth.NewCookieCodec("handler-test-cookie-secret-32byte", false, time.Hour)
	authn := auth.NewAuthenticator(tokens, cookies, logger)
	notifier := accounts.NewLogNotifier(logger)

	router := mux.NewRouter()
	for _, h := range []interface {
		RegisterRoutes(*mux.Router, *zap.Logger)
	}{
		NewArchiveHandler(archive.NewService(archive.NewGormStore(db, nil), disk, logger), disk, authn.Middleware, 1<<20),
		NewAuthHandler(accounts.NewService(db, nil, notifier, accounts.Config{FrontendURL: "http://localhost:5173"}, logger), tokens, cookies, authn.Middleware),
		NewEventHandler(events.NewService(db, nil, logger), authn.Middleware),
		NewStaticHandler(uploadRoot),
	} {
		h.RegisterRoutes(router, logger)
	}

	return &testEnv{
		router:     router,
		tokens:     tokens,
		cookies:    cookies,
		uploadRoot: uploadRoot,
		archiveDir: archiveDir,
		notifier:   notifier,
	}
}

// as attaches a session cookie for userID
func (e *testEnv) as(t *testing.T, req *http.Request, userID int64) *http.Request {
	t.Helper()
	token, err := e.tokens.Generate(userID, "user@example.org")
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, e.cookies.Set(rec, token))
	req.AddCookie(rec.Result().Cookies()[0])
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile(uploadField, fileName)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, apiPrefix+"/archives", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}
