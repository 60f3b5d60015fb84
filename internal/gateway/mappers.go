package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

// MapperFunc translates one provider's response payload into
// availability records. Each remote provider with its own payload shape
// registers a mapper under a name; the orchestrator never branches on
// provider specifics.
type MapperFunc func(providerID string, body []byte) ([]domain.ServiceAvailability, error)

// defaultResponse is the common feasibility payload shape.
type defaultResponse struct {
	Services []struct {
		Type         string   `json:"type"`
		Available    bool     `json:"available"`
		Signal       *float64 `json:"signal,omitempty"`
		MaxSpeedMbps *int     `json:"max_speed_mbps,omitempty"`
		Confidence   string   `json:"confidence,omitempty"`
	} `json:"services"`
}

// DefaultMapper parses the common shape. Missing confidence defaults to
// high: the provider's own API is authoritative for its footprint.
func DefaultMapper(providerID string, body []byte) ([]domain.ServiceAvailability, error) {
	var resp defaultResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode coverage response: %w", err)
	}

	services := make([]domain.ServiceAvailability, 0, len(resp.Services))
	for _, s := range resp.Services {
		if s.Type == "" {
			continue
		}
		confidence := domain.Confidence(strings.ToLower(s.Confidence))
		switch confidence {
		case domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow:
		default:
			confidence = domain.ConfidenceHigh
		}
		services = append(services, domain.ServiceAvailability{
			ServiceType:  strings.ToLower(s.Type),
			ProviderID:   providerID,
			Available:    s.Available,
			Signal:       s.Signal,
			MaxSpeedMbps: s.MaxSpeedMbps,
			Confidence:   confidence,
			Source:       domain.SourceAPI,
		})
	}
	return services, nil
}

// flatResponse covers providers that answer with a map of service type
// to a bare feasibility verdict.
type flatResponse map[string]struct {
	Feasible bool     `json:"feasible"`
	Quality  *float64 `json:"quality,omitempty"`
}

// FlatMapper parses the service-type-keyed shape some providers use.
func FlatMapper(providerID string, body []byte) ([]domain.ServiceAvailability, error) {
	var resp flatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode coverage response: %w", err)
	}

	services := make([]domain.ServiceAvailability, 0, len(resp))
	for serviceType, verdict := range resp {
		services = append(services, domain.ServiceAvailability{
			ServiceType: strings.ToLower(serviceType),
			ProviderID:  providerID,
			Available:   verdict.Feasible,
			Signal:      verdict.Quality,
			Confidence:  domain.ConfidenceMedium,
			Source:      domain.SourceAPI,
		})
	}
	return services, nil
}

// BuiltinMappers returns the mapper registry keyed by config name.
func BuiltinMappers() map[string]MapperFunc {
	return map[string]MapperFunc{
		"":        DefaultMapper,
		"default": DefaultMapper,
		"flat":    FlatMapper,
	}
}
