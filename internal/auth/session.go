// Package auth implements C8: local-credential login, OAuth2
// Authorization-Code+PKCE, signed-state recovery, and the per-request
// gate, adapted from the teacher's bcrypt+golang-jwt/v5 usage in
// internal/auth/{auth.go,jwt.go} but repointed at a signed session
// cookie instead of a bearer-header API token.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

const CookieName = "opensentry_session"

// Tokens is the subset of an OAuth2 token response spec §4.8 step 5 says
// the session carries forward.
type Tokens struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// Session is the decoded content of the session cookie (spec §3). Tokens
// is only set when User == "oauth2".
type Session struct {
	LoggedIn       bool   `json:"logged_in"`
	User           string `json:"user,omitempty"`
	OAuth2Fallback bool   `json:"oauth2_fallback,omitempty"`
	OAuth2State    string `json:"oauth2_state,omitempty"`
	CodeVerifier   string `json:"code_verifier,omitempty"`
	NextURL        string `json:"next_url,omitempty"`
	Tokens         Tokens `json:"tokens,omitempty"`
}

type sessionClaims struct {
	Session
	jwt.RegisteredClaims
}

// SessionCodec signs and parses the session cookie payload with HS256,
// mirroring the teacher's JWTManager shape.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionCodec(secret []byte, ttl time.Duration) *SessionCodec {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionCodec{secret: secret, ttl: ttl}
}

// StateKey returns the key used to sign OAuth2 state tokens. It reuses the
// session secret rather than requiring a second configured key.
func (c *SessionCodec) StateKey() []byte {
	return c.secret
}

// Encode signs s into a compact JWT suitable for a cookie value.
func (c *SessionCodec) Encode(s Session) (string, error) {
	claims := sessionClaims{
		Session: s,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "opensentry",
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Decode parses and verifies a cookie value back into a Session. An absent
// or unparseable cookie is treated by the caller as an anonymous session,
// not an error.
func (c *SessionCodec) Decode(cookieValue string) (Session, error) {
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(cookieValue, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrExpiredSession
		}
		return Session{}, ErrInvalidSession
	}
	if !tok.Valid {
		return Session{}, ErrInvalidSession
	}
	return claims.Session, nil
}
