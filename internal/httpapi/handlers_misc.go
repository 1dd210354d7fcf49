package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"opensentry/internal/auth"
	"opensentry/internal/settings"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Port    int            `json:"port,omitempty"`
	Caps    []string       `json:"caps"`
	Routes  map[string]string `json:"routes"`
	Camera  cameraStatus   `json:"camera"`
	AuthMode string        `json:"auth_mode"`
}

type cameraStatus struct {
	Running  bool `json:"running"`
	HasFrame bool `json:"has_frame"`
}

// handleStatus implements spec S5: optional bearer auth with 401/403
// distinction, otherwise a JSON device-status document.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.Settings.Get()

	if cfg.Auth.APIToken != "" {
		hdr := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(hdr) < len(prefix) || hdr[:len(prefix)] != prefix {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		token := hdr[len(prefix):]
		if !auth.ConstantTimeEqual(token, cfg.Auth.APIToken) {
			http.Error(w, "invalid bearer token", http.StatusForbidden)
			return
		}
	}

	frame := s.Capture.GetFrame()
	resp := statusResponse{
		ID:      cfg.DeviceID,
		Name:    "opensentry",
		Version: Version,
		Caps:    []string{"raw_stream", "motion_stream", "snapshots"},
		Routes: map[string]string{
			"raw":    "/video_feed",
			"motion": "/video_feed_motion",
		},
		Camera: cameraStatus{
			Running:  frame != nil,
			HasFrame: frame != nil,
		},
		AuthMode: effectiveAuthMode(cfg.Auth),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func effectiveAuthMode(a settings.Auth) string {
	if a.APIToken != "" {
		return "token"
	}
	if a.Mode == "oauth2" && a.BaseURL != "" && a.ClientID != "" {
		return "oauth2"
	}
	return "local"
}

func (s *Server) handleLogsDownload(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		}
	}
	data := s.Logs.Dump(n)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="opensentry-logs.txt"`)
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0, no-transform")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	_, _ = w.Write(data)
}
