package httpapi

import (
	"fmt"
	"html"
	"net/http"
	"strconv"

	"opensentry/internal/auth"
	"opensentry/internal/settings"
)

// handleSettings renders the settings form (GET) and dispatches updates by
// the "action" form field (POST), grounded in server.py's /settings route.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.writeSettingsPage(w, "")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	switch r.FormValue("action") {
	case "reset_motion":
		if err := s.Settings.Reset("motion"); err != nil {
			s.writeSettingsPage(w, err.Error())
			return
		}
	case "update_auth":
		s.updateAuth(r)
	default:
		s.updateMotionAndSnapshots(r)
	}

	s.writeSettingsPage(w, "")
}

func (s *Server) updateAuth(r *http.Request) {
	_ = s.Settings.Update(func(c *settings.Config) {
		if mode := r.FormValue("auth_mode"); mode == "local" || mode == "oauth2" {
			c.Auth.Mode = mode
		}
		if v := r.FormValue("base_url"); v != "" {
			c.Auth.BaseURL = v
		}
		if v := r.FormValue("client_id"); v != "" {
			c.Auth.ClientID = v
		}
		if v := r.FormValue("client_secret"); v != "" {
			c.Auth.ClientSecret = v
		}
		if v := r.FormValue("scope"); v != "" {
			c.Auth.Scope = v
		}
		if v := r.FormValue("username"); v != "" {
			c.Auth.Username = v
		}
		if v := r.FormValue("password"); v != "" {
			if hash, err := auth.HashPassword(v); err == nil {
				c.Auth.PasswordHash = hash
			} else {
				s.Log.Error("httpapi: password hash failed", "err", err)
			}
		}
	})
}

// updateMotionAndSnapshots applies the same clamps as server.py's
// settings handler: min_area/pad floor at 0, interval in [5,60],
// retention_count in [10,1000], retention_days in [1,30].
func (s *Server) updateMotionAndSnapshots(r *http.Request) {
	cur := s.Settings.Get()

	minArea := formInt(r, "md_min_area", cur.Motion.MinArea)
	pad := formInt(r, "md_pad", cur.Motion.Pad)
	if minArea < 0 {
		minArea = 0
	}
	if pad < 0 {
		pad = 0
	}

	interval := clamp(formInt(r, "snapshot_interval", cur.Snapshots.IntervalSecs), 5, 60)
	retentionCount := clamp(formInt(r, "snapshot_retention_count", cur.Snapshots.RetentionCount), 10, 1000)
	retentionDays := clamp(formInt(r, "snapshot_retention_days", cur.Snapshots.RetentionDays), 1, 30)

	_ = s.Settings.Update(func(c *settings.Config) {
		c.Motion.MinArea = minArea
		c.Motion.Pad = pad
		c.Snapshots.IntervalSecs = interval
		c.Snapshots.RetentionCount = retentionCount
		c.Snapshots.RetentionDays = retentionDays
	})
}

func formInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.FormValue(key))
	if err != nil {
		return fallback
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Server) writeSettingsPage(w http.ResponseWriter, errMsg string) {
	cfg := s.Settings.Get()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if errMsg != "" {
		fmt.Fprintf(w, `<p class="error">%s</p>`, html.EscapeString(errMsg))
	}
	fmt.Fprintf(w, `<form method="post" action="/settings">
<fieldset><legend>Motion</legend>
<input name="md_min_area" value="%d"> min area
<input name="md_pad" value="%d"> pad
<button type="submit" name="action" value="reset_motion">Reset</button>
</fieldset>
<fieldset><legend>Snapshots</legend>
<input name="snapshot_interval" value="%d"> interval secs
<input name="snapshot_retention_count" value="%d"> retention count
<input name="snapshot_retention_days" value="%d"> retention days
</fieldset>
<button type="submit">Save</button>
</form>
<form method="post" action="/settings">
<input type="hidden" name="action" value="update_auth">
<fieldset><legend>Auth</legend>
<input name="auth_mode" value="%s">
<input name="base_url" value="%s">
<input name="client_id" value="%s">
<input name="username" value="%s">
</fieldset>
<button type="submit">Save auth</button>
</form>`,
		cfg.Motion.MinArea, cfg.Motion.Pad,
		cfg.Snapshots.IntervalSecs, cfg.Snapshots.RetentionCount, cfg.Snapshots.RetentionDays,
		html.EscapeString(cfg.Auth.Mode), html.EscapeString(cfg.Auth.BaseURL),
		html.EscapeString(cfg.Auth.ClientID), html.EscapeString(cfg.Auth.Username))
}
