package httpapi

import (
	"fmt"
	"html"
	"net/http"
	"time"

	"opensentry/internal/auth"
)

const stateMaxAge = 600 * time.Second

func (s *Server) redirectURI(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/oauth2/callback"
}

// handleLogin serves the local-credential login form (GET) and checks
// submitted credentials (POST), grounded in server.py's /login route.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	cfg := s.Settings.Get()
	next := r.URL.Query().Get("next")
	if next == "" {
		next = "/"
	}

	if r.Method == http.MethodGet {
		writeLoginPage(w, next, "")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")
	if formNext := r.FormValue("next"); formNext != "" {
		next = formNext
	}

	creds := auth.LocalCredentials{Username: cfg.Auth.Username, PasswordHash: []byte(cfg.Auth.PasswordHash)}
	if err := creds.Authenticate(username, password); err != nil {
		writeLoginPage(w, next, "invalid username or password")
		return
	}

	s.setSession(w, auth.Session{LoggedIn: true, User: username})
	http.Redirect(w, r, next, http.StatusFound)
}

func writeLoginPage(w http.ResponseWriter, next, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if errMsg != "" {
		fmt.Fprintf(w, `<p class="error">%s</p>`, html.EscapeString(errMsg))
	}
	fmt.Fprintf(w, `<form method="post" action="/login?next=%s">
<input name="username" placeholder="username">
<input name="password" type="password" placeholder="password">
<input type="hidden" name="next" value="%s">
<button type="submit">Log in</button>
</form>`, html.EscapeString(next), html.EscapeString(next))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleOAuth2Login probes the configured provider's metadata, mints PKCE
// and signed state, stashes the verifier in the session, and redirects to
// the authorization endpoint. On probe failure it renders an error page
// offering retry, local-login fallback, and settings links, per
// server.py's oauth2_login.
func (s *Server) handleOAuth2Login(w http.ResponseWriter, r *http.Request) {
	cfg := s.Settings.Get()
	acfg := auth.Config{Mode: cfg.Auth.Mode, BaseURL: cfg.Auth.BaseURL, ClientID: cfg.Auth.ClientID, ClientSecret: cfg.Auth.ClientSecret, Scope: cfg.Auth.Scope}

	meta, err := auth.ProbeMetadata(r.Context(), acfg.BaseURL)
	if err != nil {
		writeOAuth2Unavailable(w, err)
		return
	}

	verifier, challenge, err := auth.GeneratePKCE()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	state, err := auth.MakeState(s.Sessions.StateKey(), verifier)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sess := sessionFromContext(r)
	sess.OAuth2State = state
	sess.CodeVerifier = verifier
	s.setSession(w, sess)

	redirectURL := auth.AuthorizationURL(meta, acfg, s.redirectURI(r), state, challenge)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func writeOAuth2Unavailable(w http.ResponseWriter, probeErr error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, `<h1>Identity provider unavailable</h1>
<p>%s</p>
<p><a href="/oauth2/login">Retry</a> | <a href="/oauth2/fallback">Use local login</a> | <a href="/settings">Settings</a></p>`,
		html.EscapeString(probeErr.Error()))
}

// handleOAuth2Callback validates state and exchanges the authorization
// code for tokens, per server.py's oauth2_callback.
func (s *Server) handleOAuth2Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}

	sess := sessionFromContext(r)
	verifier := sess.CodeVerifier

	if state != sess.OAuth2State {
		payload, err := auth.VerifyState(s.Sessions.StateKey(), state, stateMaxAge)
		if err != nil {
			http.Error(w, "invalid or expired state", http.StatusBadRequest)
			return
		}
		if payload.V != "" {
			verifier = payload.V
		}
	}
	if verifier == "" {
		http.Error(w, "missing pkce verifier", http.StatusBadRequest)
		return
	}

	cfg := s.Settings.Get()
	acfg := auth.Config{Mode: cfg.Auth.Mode, BaseURL: cfg.Auth.BaseURL, ClientID: cfg.Auth.ClientID, ClientSecret: cfg.Auth.ClientSecret, Scope: cfg.Auth.Scope}
	meta, err := auth.ProbeMetadata(r.Context(), acfg.BaseURL)
	if err != nil {
		writeOAuth2Unavailable(w, err)
		return
	}

	tok, err := auth.ExchangeCode(r.Context(), meta, acfg, code, verifier, s.redirectURI(r))
	if err != nil {
		s.Log.Warn("httpapi: oauth2 token exchange failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	next := sess.NextURL
	if next == "" {
		next = "/"
	}
	s.setSession(w, auth.Session{
		LoggedIn: true,
		User:     "oauth2",
		Tokens: auth.Tokens{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			IDToken:      tok.IDToken,
			ExpiresIn:    tok.ExpiresIn,
			TokenType:    tok.TokenType,
		},
	})
	http.Redirect(w, r, next, http.StatusFound)
}

// handleOAuth2Fallback marks the session so the pre-handler gate stops
// redirecting to the identity provider and sends the user to local login.
func (s *Server) handleOAuth2Fallback(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	sess.OAuth2Fallback = true
	s.setSession(w, sess)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleOAuth2Test probes an arbitrary base_url query parameter, letting
// the settings page validate a provider before saving it.
func (s *Server) handleOAuth2Test(w http.ResponseWriter, r *http.Request) {
	baseURL := r.URL.Query().Get("base_url")
	if baseURL == "" {
		http.Error(w, "missing base_url", http.StatusBadRequest)
		return
	}
	meta, err := auth.ProbeMetadata(r.Context(), baseURL)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "issuer": meta.Issuer})
}
