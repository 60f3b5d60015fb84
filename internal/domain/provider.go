package domain

import (
	"sort"
	"strings"
	"time"
)

// ProviderKind distinguishes how coverage for a provider is determined.
type ProviderKind string

const (
	// KindRemote queries the provider's own feasibility API over HTTP.
	KindRemote ProviderKind = "remote"
	// KindStatic tests the point against locally held coverage polygons.
	KindStatic ProviderKind = "static"
)

// AuthMethod selects how remote calls are authenticated.
type AuthMethod string

const (
	AuthNone    AuthMethod = "none"
	AuthAPIKey  AuthMethod = "api_key"
	AuthBearer  AuthMethod = "bearer"
	AuthOAuth   AuthMethod = "oauth"
	AuthSession AuthMethod = "session_ticket"
)

// FallbackBehavior controls what a static provider reports when the point
// falls outside every polygon.
type FallbackBehavior string

const (
	FallbackNone        FallbackBehavior = "none"
	FallbackApproximate FallbackBehavior = "approximate"
)

// Provider is the engine's read-only view of a configured coverage source.
//
// Provider records are owned by the external configuration collaborator and
// replaced wholesale on reload; the engine never mutates them.
type Provider struct {
	// ID is the canonical unique identifier (stable across reloads).
	ID string

	// Name is the human-readable display name.
	Name string

	// Enabled providers participate in resolution; disabled ones are
	// skipped at selection time without error.
	Enabled bool

	Kind ProviderKind

	// Priority orders providers for tie-breaking; lower is preferred.
	// Ties on Priority are broken by ID so ordering stays total.
	Priority int

	// ServiceTypes lists the connectivity services this provider can
	// answer for (fibre, fixed_wireless, 5g, ...). Must be non-empty.
	ServiceTypes []string

	Remote *RemoteConfig
	Static *StaticConfig
}

// RemoteConfig holds the HTTP-specific settings of a remote provider.
type RemoteConfig struct {
	BaseURL string

	Auth        AuthMethod
	APIKey      string
	APIKeyHeader string
	BearerToken string

	// Session-ticket auth: login endpoint plus credentials. The session
	// refresher owns the resulting ticket.
	LoginURL    string
	Username    string
	Password    string
	AutoRefresh bool

	// Mapping names the response mapper used to translate this
	// provider's payload shape into ServiceAvailability records.
	// Empty selects the default mapper.
	Mapping string

	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RateLimitRPM  int
}

// StaticConfig holds the dataset-backed settings of a static provider.
type StaticConfig struct {
	// DatasetDir is scanned for this provider's dataset files.
	DatasetDir string

	Fallback FallbackBehavior

	// MaxFallbackKM bounds the approximate-match search distance.
	MaxFallbackKM float64
}

// SupportsService reports whether the provider covers the given service type.
func (p *Provider) SupportsService(serviceType string) bool {
	for _, st := range p.ServiceTypes {
		if strings.EqualFold(st, serviceType) {
			return true
		}
	}
	return false
}

// SupportsAny reports whether the provider covers at least one of the
// requested service types. An empty request matches everything.
func (p *Provider) SupportsAny(serviceTypes []string) bool {
	if len(serviceTypes) == 0 {
		return true
	}
	for _, st := range serviceTypes {
		if p.SupportsService(st) {
			return true
		}
	}
	return false
}

// Validate checks the provider definition for configuration errors.
func (p *Provider) Validate() error {
	if p.ID == "" {
		return &ConfigurationError{ProviderID: p.ID, Reason: "provider id is required"}
	}
	if len(p.ServiceTypes) == 0 {
		return &ConfigurationError{ProviderID: p.ID, Reason: "serviceTypes must be non-empty"}
	}
	switch p.Kind {
	case KindRemote:
		if p.Remote == nil {
			return &ConfigurationError{ProviderID: p.ID, Reason: "remote provider missing remote config"}
		}
		if p.Remote.BaseURL == "" {
			return &ConfigurationError{ProviderID: p.ID, Reason: "remote provider missing base URL"}
		}
		switch p.Remote.Auth {
		case AuthNone, AuthAPIKey, AuthBearer, AuthOAuth, AuthSession, "":
		default:
			return &ConfigurationError{ProviderID: p.ID, Reason: "unknown auth method: " + string(p.Remote.Auth)}
		}
		if p.Remote.Auth == AuthSession && p.Remote.LoginURL == "" {
			return &ConfigurationError{ProviderID: p.ID, Reason: "session_ticket auth requires a login URL"}
		}
	case KindStatic:
		if p.Static == nil {
			return &ConfigurationError{ProviderID: p.ID, Reason: "static provider missing static config"}
		}
		switch p.Static.Fallback {
		case FallbackNone, FallbackApproximate, "":
		default:
			return &ConfigurationError{ProviderID: p.ID, Reason: "unknown fallback behavior: " + string(p.Static.Fallback)}
		}
	default:
		return &ConfigurationError{ProviderID: p.ID, Reason: "unknown provider kind: " + string(p.Kind)}
	}
	return nil
}

// SortByPriority orders providers by Priority ascending, ties broken by ID.
func SortByPriority(providers []*Provider) {
	sort.Slice(providers, func(i, j int) bool {
		if providers[i].Priority != providers[j].Priority {
			return providers[i].Priority < providers[j].Priority
		}
		return providers[i].ID < providers[j].ID
	})
}
