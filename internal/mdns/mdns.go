// Package mdns represents the mDNS service advertisement described in
// spec §6 as an external collaborator. No mDNS/zeroconf library exists
// anywhere in this repository's example corpus, so this is a minimal
// interface with a no-op implementation rather than an unfounded
// dependency (see DESIGN.md).
package mdns

import "context"

// TXT is the record shape from spec §6:
// {id, name, ver, caps, auth, path, proto}.
type TXT struct {
	ID    string
	Name  string
	Ver   string
	Caps  string
	Auth  string
	Path  string
	Proto string
}

// Advertiser starts on first request and stops on shutdown; it must never
// block request servicing if the underlying mechanism is unavailable.
type Advertiser interface {
	Start(ctx context.Context, txt TXT) error
	Stop()
}

// NoopAdvertiser satisfies Advertiser without touching the network.
type NoopAdvertiser struct{}

func (NoopAdvertiser) Start(context.Context, TXT) error { return nil }
func (NoopAdvertiser) Stop()                            {}
