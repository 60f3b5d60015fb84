package providers

import (
	"fmt"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

// Default reliability knobs applied when a provider leaves them unset.
const (
	DefaultTimeout       = 5 * time.Second
	DefaultRetryAttempts = 2
	DefaultRetryDelay    = 200 * time.Millisecond
	DefaultRateLimitRPM  = 120
	DefaultFallbackKM    = 5.0
)

// Mapper converts provider file entries to domain.Provider entities.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// MapProviders converts the parsed file into validated domain providers.
// A malformed entry yields a ConfigurationError for that provider only;
// valid entries still load. The returned errors are reported, not fatal.
func (m *Mapper) MapProviders(file *File) ([]*domain.Provider, []error) {
	var providers []*domain.Provider
	var errs []error

	seen := make(map[string]bool, len(file.Providers))
	for _, props := range file.Providers {
		if seen[props.ID] {
			errs = append(errs, &domain.ConfigurationError{
				ProviderID: props.ID,
				Reason:     "duplicate provider id",
			})
			continue
		}
		seen[props.ID] = true

		p := m.mapProvider(props)
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		errs = append(errs, fmt.Errorf("no valid providers found in config"))
	}

	return providers, errs
}

func (m *Mapper) mapProvider(props ProviderProps) *domain.Provider {
	p := &domain.Provider{
		ID:           props.ID,
		Name:         props.Name,
		Enabled:      props.Enabled == nil || *props.Enabled,
		Kind:         domain.ProviderKind(props.Kind),
		Priority:     props.Priority,
		ServiceTypes: props.ServiceTypes,
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	if props.Remote != nil {
		rc := &domain.RemoteConfig{
			BaseURL:      props.Remote.BaseURL,
			Auth:         domain.AuthMethod(props.Remote.Auth),
			APIKey:       props.Remote.APIKey,
			APIKeyHeader: props.Remote.APIKeyHeader,
			BearerToken:  props.Remote.BearerToken,
			LoginURL:     props.Remote.LoginURL,
			Username:     props.Remote.Username,
			Password:     props.Remote.Password,
			AutoRefresh:  props.Remote.AutoRefresh == nil || *props.Remote.AutoRefresh,
			Mapping:      props.Remote.Mapping,

			Timeout:       DefaultTimeout,
			RetryAttempts: DefaultRetryAttempts,
			RetryDelay:    DefaultRetryDelay,
			RateLimitRPM:  DefaultRateLimitRPM,
		}
		if rc.Auth == "" {
			rc.Auth = domain.AuthNone
		}
		if props.Remote.TimeoutMs > 0 {
			rc.Timeout = time.Duration(props.Remote.TimeoutMs) * time.Millisecond
		}
		if props.Remote.RetryAttempts > 0 {
			rc.RetryAttempts = props.Remote.RetryAttempts
		}
		if props.Remote.RetryDelayMs > 0 {
			rc.RetryDelay = time.Duration(props.Remote.RetryDelayMs) * time.Millisecond
		}
		if props.Remote.RateLimitRPM > 0 {
			rc.RateLimitRPM = props.Remote.RateLimitRPM
		}
		p.Remote = rc
	}

	if props.Static != nil {
		sc := &domain.StaticConfig{
			DatasetDir:    props.Static.DatasetDir,
			Fallback:      domain.FallbackBehavior(props.Static.Fallback),
			MaxFallbackKM: props.Static.MaxFallbackKM,
		}
		if sc.Fallback == "" {
			sc.Fallback = domain.FallbackNone
		}
		if sc.MaxFallbackKM <= 0 {
			sc.MaxFallbackKM = DefaultFallbackKM
		}
		p.Static = sc
	}

	return p
}
