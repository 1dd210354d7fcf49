// Package httpapi implements C9: the HTTP surface for login, OAuth2
// callback, live streams, snapshot APIs, status, and settings submission.
// Routed with chi, since the teacher's goa-generated transport
// (design/design.go) depends on a gen/ tree this pack does not ship (see
// DESIGN.md).
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opensentry/internal/auth"
	"opensentry/internal/broadcast"
	"opensentry/internal/capture"
	"opensentry/internal/eventhub"
	"opensentry/internal/logbuf"
	"opensentry/internal/settings"
	"opensentry/internal/snapshot"
	"opensentry/internal/streamworker"
)

const Version = "1.0.0"

// Server holds every component C9 orchestrates. It has no mutable state of
// its own beyond what its fields already protect internally.
type Server struct {
	Settings  *settings.Store
	Capture   *capture.Source
	Raw       *broadcast.Broadcaster
	Motion    *streamworker.MotionWorker
	Snapshots *snapshot.Worker
	Events    *eventhub.Hub
	Logs      *logbuf.Buffer
	Sessions  *auth.SessionCodec

	Log       *slog.Logger
	StartTime time.Time
}

// Router builds the full chi.Mux described by spec §6.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observabilityHeaders)

	r.Get("/health", s.endpoint("health", s.handleHealth))
	r.Get("/favicon.ico", s.endpoint("favicon", s.handleFavicon))
	r.Get("/status", s.endpoint("status", s.handleStatus))

	r.Get("/login", s.endpoint("login", s.handleLogin))
	r.Post("/login", s.endpoint("login", s.handleLogin))
	r.Get("/logout", s.endpoint("logout", s.handleLogout))

	r.Get("/oauth2/login", s.endpoint("oauth2_login", s.handleOAuth2Login))
	r.Get("/oauth2/callback", s.endpoint("oauth2_callback", s.handleOAuth2Callback))
	r.Get("/oauth2/fallback", s.endpoint("oauth2_fallback", s.handleOAuth2Fallback))
	r.Get("/api/oauth2/test", s.endpoint("oauth2_test_api", s.handleOAuth2Test))

	r.Get("/video_feed", s.endpoint("video_feed", s.handleVideoFeed))
	r.Get("/video_feed_motion", s.endpoint("video_feed_motion", s.handleVideoFeedMotion))
	r.Get("/ws/motion", s.endpoint("ws_motion", s.Events.ServeHTTP))

	r.Get("/api/snapshot", s.endpoint("api_snapshot", s.handleSnapshotCurrent))
	r.Get("/api/snapshots/latest", s.endpoint("api_snapshots_latest", s.handleSnapshotLatest))
	r.Get("/api/snapshots/list", s.endpoint("api_snapshots_list", s.handleSnapshotList))
	r.Get("/api/snapshots/image/{name}", s.endpoint("api_snapshots_image", s.handleSnapshotImage))
	r.Post("/api/snapshots/delete/{name}", s.endpoint("api_snapshots_delete", s.handleSnapshotDelete))
	r.Delete("/api/snapshots/delete/{name}", s.endpoint("api_snapshots_delete", s.handleSnapshotDelete))

	r.Get("/settings", s.endpoint("settings", s.handleSettings))
	r.Post("/settings", s.endpoint("settings", s.handleSettings))

	r.Get("/logs/download", s.endpoint("logs_download", s.handleLogsDownload))

	return r
}

// endpoint wraps handler with the observability-agnostic parts of the
// pipeline: it runs the pre-handler auth gate (spec §4.8) under the given
// route name before calling through.
func (s *Server) endpoint(name string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessionFromRequest(r)
		cfg := s.Settings.Get()
		oauth2Enabled := auth.Config{
			Mode: cfg.Auth.Mode, BaseURL: cfg.Auth.BaseURL, ClientID: cfg.Auth.ClientID,
		}.Enabled()

		switch auth.Decide(name, sess, oauth2Enabled) {
		case auth.RedirectOAuth2Login:
			s.setSession(w, withNext(sess, r.URL.RequestURI()))
			http.Redirect(w, r, "/oauth2/login", http.StatusFound)
			return
		case auth.RedirectLocalLogin:
			http.Redirect(w, r, "/login?next="+r.URL.RequestURI(), http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		handler(w, r.WithContext(ctx))
	}
}

func withNext(sess auth.Session, next string) auth.Session {
	sess.NextURL = next
	return sess
}

type sessionCtxKey struct{}

func sessionFromContext(r *http.Request) auth.Session {
	if v, ok := r.Context().Value(sessionCtxKey{}).(auth.Session); ok {
		return v
	}
	return auth.Session{}
}

func (s *Server) sessionFromRequest(r *http.Request) auth.Session {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return auth.Session{}
	}
	sess, err := s.Sessions.Decode(c.Value)
	if err != nil {
		return auth.Session{}
	}
	return sess
}

func (s *Server) setSession(w http.ResponseWriter, sess auth.Session) {
	tok, err := s.Sessions.Encode(sess)
	if err != nil {
		s.Log.Error("httpapi: session encode failed", "err", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "", Path: "/", MaxAge: -1})
}

// observabilityHeaders applies Server/X-OpenSentry-Version/X-OpenSentry-Device
// to every response, grounded in server.py's _add_observability_headers.
func (s *Server) observabilityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "OpenSentry/"+Version)
		w.Header().Set("X-OpenSentry-Version", Version)
		w.Header().Set("X-OpenSentry-Device", s.Settings.Get().DeviceID)
		next.ServeHTTP(w, r)
	})
}
