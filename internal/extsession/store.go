package extsession

import (
	"context"
	"time"
)

// External holds the verified identity asserted by the external provider
// for the current browser. It is written exclusively by the OAuth callback
// after id_token verification and is never trusted from the client.
type External struct {
	SessionID  string            // opaque cookie value
	Provider   string            // provider name, e.g. "oidc"
	ExternalID string            // provider-scoped subject
	Attributes map[string]string // display attributes (name, given_name, nickname, email)
	ExpiresAt  time.Time
}

// Store persists external sessions between the OAuth callback and the
// reconciliation entry point.
type Store interface {
	Create(ctx context.Context, e External) error
	Get(ctx context.Context, sessionID string) (*External, error)
	Delete(ctx context.Context, sessionID string) error
}

// TTL bounds how long a verified external identity is honored without
// re-authenticating against the provider.
const TTL = time.Hour
