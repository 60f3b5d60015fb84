package domain

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidQueryError rejects a query before any provider is dispatched.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return "invalid query: " + e.Reason
}

// ConfigurationError marks a malformed provider definition. It is fatal
// for that provider only; other providers still participate.
type ConfigurationError struct {
	ProviderID string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.ProviderID == "" {
		return "provider configuration error: " + e.Reason
	}
	return fmt.Sprintf("provider %q configuration error: %s", e.ProviderID, e.Reason)
}

// ProviderErrorKind classifies per-provider call failures.
type ProviderErrorKind string

const (
	ErrKindTimeout     ProviderErrorKind = "timeout"
	ErrKindNetwork     ProviderErrorKind = "network"
	ErrKindAuth        ProviderErrorKind = "auth"
	ErrKindRateLimited ProviderErrorKind = "rate_limited"
	ErrKindConfig      ProviderErrorKind = "config"
)

// ProviderError is a single provider's call failure. It degrades that
// provider's contribution to the merge; it never aborts the query.
type ProviderError struct {
	ProviderID string
	Kind       ProviderErrorKind
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %q failed (%s)", e.ProviderID, e.Kind)
	}
	return fmt.Sprintf("provider %q failed (%s): %v", e.ProviderID, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GeometryParseError marks a malformed dataset. The dataset is excluded;
// the query proceeds with the remaining providers.
type GeometryParseError struct {
	Dataset string
	Err     error
}

func (e *GeometryParseError) Error() string {
	return fmt.Sprintf("dataset %q parse error: %v", e.Dataset, e.Err)
}

func (e *GeometryParseError) Unwrap() error { return e.Err }

// ErrNoCoverageFound is returned when no provider is eligible for the
// query at all. Unanimous unavailability from eligible providers is NOT
// this error; that is a valid negative result.
var ErrNoCoverageFound = errors.New("no eligible coverage providers for query")

// AllProvidersFailedError is returned only when every dispatched provider
// errored. Partial successes always win over this error.
type AllProvidersFailedError struct {
	Causes []*ProviderError
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		parts = append(parts, c.Error())
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// CauseFor returns the failure recorded for a provider, if any.
func (e *AllProvidersFailedError) CauseFor(providerID string) *ProviderError {
	for _, c := range e.Causes {
		if c.ProviderID == providerID {
			return c
		}
	}
	return nil
}
