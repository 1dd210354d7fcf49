package httpapi

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opensentry/internal/auth"
	"opensentry/internal/broadcast"
	"opensentry/internal/capture"
	"opensentry/internal/eventhub"
	"opensentry/internal/logbuf"
	"opensentry/internal/settings"
	"opensentry/internal/snapshot"
	"opensentry/internal/streamworker"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	settingsPath := t.TempDir() + "/settings.json"
	store, err := settings.Load(settingsPath, log)
	require.NoError(t, err)

	src := capture.New(capture.Config{}, log)
	raw := streamworker.NewRawWorker("raw", src, func() streamworker.RawParams {
		return streamworker.RawParams{Quality: 80, FPS: 15}
	})
	motionWorker := streamworker.NewMotionWorker("motion", src, func() streamworker.MotionParams {
		return streamworker.MotionParams{RawParams: streamworker.RawParams{Quality: 80, FPS: 15}}
	}, nil)
	snapWorker := snapshot.New(src.GetFrame, func() snapshot.Config {
		return snapshot.Config{Directory: t.TempDir()}
	}, log)

	return &Server{
		Settings:  store,
		Capture:   src,
		Raw:       raw,
		Motion:    motionWorker,
		Snapshots: snapWorker,
		Events:    eventhub.NewHub(log),
		Logs:      logbuf.New(slog.NewTextHandler(os.Stderr, nil), 0, 0),
		Sessions:  auth.NewSessionCodec([]byte("test-secret"), time.Hour),
		Log:       log,
		StartTime: time.Now(),
	}
}

func TestHealthIsPublicAndReturnsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSettingsRedirectsAnonymousToLogin(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")
}

func TestSettingsAllowedWithSessionCookie(t *testing.T) {
	s := newTestServer(t)
	tok, err := s.Sessions.Encode(auth.Session{LoggedIn: true, User: "admin"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusWithoutConfiguredTokenSkipsAuth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusRejectsMissingBearerWhenTokenConfigured(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Settings.Update(func(c *settings.Config) { c.Auth.APIToken = "secret-token" }))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusRejectsWrongBearerWith403(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Settings.Update(func(c *settings.Config) { c.Auth.APIToken = "secret-token" }))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatusAcceptsCorrectBearer(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Settings.Update(func(c *settings.Config) { c.Auth.APIToken = "secret-token" }))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSnapshotImageRejectsPathTraversal(t *testing.T) {
	assert.False(t, validSnapshotName("../../etc/passwd"))
	assert.False(t, validSnapshotName("a/b.jpg"))
	assert.False(t, validSnapshotName("a\\b.jpg"))
	assert.False(t, validSnapshotName("notajpeg.txt"))
	assert.True(t, validSnapshotName("2024-01-01_00-00-00_snapshot.jpg"))
}

func TestVideoFeedSendsMultipartHeaders(t *testing.T) {
	s := newTestServer(t)
	s.Raw = broadcast.New("raw", func() []byte { return []byte{0xFF, 0xD8, 0xFF, 0xD9} }, func() int { return 30 })
	s.Raw.Start()
	defer s.Raw.Stop()

	tok, err := s.Sessions.Encode(auth.Session{LoggedIn: true, User: "admin"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/video_feed", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok})
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.Router().ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	s.Raw.Stop()
	<-done

	assert.Contains(t, rec.Header().Get("Content-Type"), "multipart/x-mixed-replace")
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
}

func TestLogsDownloadReturnsAttachment(t *testing.T) {
	s := newTestServer(t)
	tok, err := s.Sessions.Encode(auth.Session{LoggedIn: true, User: "admin"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/logs/download", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "opensentry-logs.txt")
}
