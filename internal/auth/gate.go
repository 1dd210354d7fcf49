package auth

// PublicEndpoints is the allowlist from spec §4.8: these route names never
// require a session.
var PublicEndpoints = map[string]bool{
	"login":            true,
	"oauth2_login":     true,
	"oauth2_callback":  true,
	"oauth2_fallback":  true,
	"oauth2_test_api":  true,
	"health":           true,
	"favicon":          true,
	"status":           true,
}

// GateDecision is what the pre-handler gate tells the caller to do.
type GateDecision int

const (
	Allow GateDecision = iota
	RedirectOAuth2Login
	RedirectLocalLogin
)

// Decide implements spec §4.8's pre-handler gate. endpoint is the route
// name; sess is the (possibly zero-value/anonymous) decoded session.
func Decide(endpoint string, sess Session, oauth2Enabled bool) GateDecision {
	if PublicEndpoints[endpoint] || sess.LoggedIn {
		return Allow
	}
	if oauth2Enabled && !sess.OAuth2Fallback {
		return RedirectOAuth2Login
	}
	return RedirectLocalLogin
}
