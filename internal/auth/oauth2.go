package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config is the AuthConfig data model from spec §3.
type Config struct {
	Mode         string // "local" or "oauth2"
	BaseURL      string
	ClientID     string
	ClientSecret string
	Scope        string
}

// Enabled reports the "effective OAuth2 mode" invariant: mode == oauth2 AND
// base_url != "" AND client_id != "".
func (c Config) Enabled() bool {
	return strings.EqualFold(c.Mode, "oauth2") && strings.TrimSpace(c.BaseURL) != "" && strings.TrimSpace(c.ClientID) != ""
}

// Metadata is the subset of OIDC/RFC8414 discovery metadata this service
// requires.
type Metadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

const probeTimeout = 3 * time.Second

// ProbeMetadata tries OIDC discovery first, then the RFC 8414
// authorization-server well-known location, matching
// original_source/server.py's _probe_oauth2.
func ProbeMetadata(ctx context.Context, baseURL string) (Metadata, error) {
	base := strings.TrimRight(baseURL, "/")
	meta, err := fetchMetadata(ctx, base+"/.well-known/openid-configuration")
	if err == nil {
		return meta, nil
	}
	meta, err2 := fetchMetadata(ctx, base+"/.well-known/oauth-authorization-server")
	if err2 == nil {
		return meta, nil
	}
	return Metadata{}, fmt.Errorf("oauth2 metadata probe failed: %w", err)
}

func fetchMetadata(ctx context.Context, u string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Metadata{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Metadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Metadata{}, err
	}
	if meta.Issuer == "" || meta.AuthorizationEndpoint == "" || meta.TokenEndpoint == "" {
		return Metadata{}, fmt.Errorf("missing required fields")
	}
	return meta, nil
}

// AuthorizationURL builds the redirect target for the authorization
// request.
func AuthorizationURL(meta Metadata, cfg Config, redirectURI, state, challenge string) string {
	v := url.Values{}
	v.Set("response_type", "code")
	v.Set("client_id", cfg.ClientID)
	v.Set("redirect_uri", redirectURI)
	v.Set("scope", cfg.Scope)
	v.Set("state", state)
	v.Set("code_challenge_method", "S256")
	v.Set("code_challenge", challenge)
	return meta.AuthorizationEndpoint + "?" + v.Encode()
}

const tokenExchangeTimeout = 5 * time.Second

// TokenResponse is the subset of the token endpoint's JSON body the
// session retains (spec §3's Session.tokens).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// ErrTokenExchange carries the upstream HTTP status for the 502 response.
type ErrTokenExchange struct {
	Status int
	Body   string
}

func (e *ErrTokenExchange) Error() string {
	return fmt.Sprintf("token exchange failed: %d", e.Status)
}

// ExchangeCode posts the authorization code for tokens.
func ExchangeCode(ctx context.Context, meta Metadata, cfg Config, code, verifier, redirectURI string) (TokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", cfg.ClientID)
	form.Set("code_verifier", verifier)
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, meta.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return TokenResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TokenResponse{}, &ErrTokenExchange{Status: resp.StatusCode}
	}
	var tok TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return TokenResponse{}, err
	}
	return tok, nil
}
