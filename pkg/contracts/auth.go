// Package contracts — authentication interfaces for the pluggable auth
// layer. OSS-equivalent providers ship API key and service-account
// validation; a production deployment can add OIDC/SAML/LDAP/mTLS
// providers to the same chain without touching any handler.
package contracts

import (
	"context"
	"net/http"
	"time"
)

// ── Identity ────────────────────────────────────────────────

// Identity represents an authenticated caller — typically the agent
// harness driving ck3lens/ck3raven-dev, or a CI pipeline.
// Produced by an AuthProvider, consumed by handlers.
type Identity struct {
	// Subject is the unique identifier (API key hash, service account name).
	Subject string `json:"subject"`

	// DisplayName is a human-readable name.
	DisplayName string `json:"display_name,omitempty"`

	// Provider identifies which auth provider authenticated this identity.
	// Values: "apikey", "service_account".
	Provider string `json:"provider"`

	// Session is the ck3fence session ID this identity is scoped to, if
	// the credential carries one. Empty means the caller must supply a
	// session ID explicitly (header or request body).
	Session string `json:"session,omitempty"`

	// Claims holds raw claims from the token, for custom policy checks.
	Claims map[string]string `json:"claims,omitempty"`

	// ExpiresAt is when this identity's credential expires.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// ── AuthProvider ────────────────────────────────────────────

// AuthProvider authenticates an HTTP request and returns an Identity.
//
// The chain pattern:
//   - Return (*Identity, nil) → authenticated, stop chain
//   - Return (nil, nil) → this provider doesn't handle this request, try next
//   - Return (nil, error) → authentication was attempted but failed, reject
type AuthProvider interface {
	// Name returns the provider identifier (e.g. "apikey", "service_account").
	Name() string

	// Authenticate inspects the request and returns an Identity.
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)

	// Enabled returns whether this provider is configured and active.
	Enabled() bool
}

// ── AuthProviderChain ───────────────────────────────────────

// AuthProviderChain tries providers in priority order until one returns an
// Identity.
type AuthProviderChain interface {
	// Authenticate walks the chain of providers in order.
	// Returns the first successful Identity, or (nil, nil) if no provider matched.
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)

	// RegisterProvider adds a provider to the end of the chain.
	// Providers are tried in registration order.
	RegisterProvider(provider AuthProvider)
}
