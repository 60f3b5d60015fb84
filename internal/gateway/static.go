package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/geometry"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/telemetry"
)

// Static answers coverage queries from the provider's active datasets in
// the geometry store. No network, no retries.
type Static struct {
	geo    *geometry.Store
	sink   telemetry.Reporter
	logger logger.Logger
}

func NewStatic(geo *geometry.Store, sink telemetry.Reporter, log logger.Logger) *Static {
	return &Static{geo: geo, sink: sink, logger: log}
}

func (s *Static) Query(ctx context.Context, p *domain.Provider, q *domain.CoverageQuery) domain.ProviderCoverageResult {
	start := time.Now()
	point := geometry.Point{Lat: q.Latitude, Lon: q.Longitude}
	types := requestedTypes(p, q)

	covered := make(map[string]domain.ServiceAvailability)

	// Direct polygon hits are high confidence.
	for _, m := range s.geo.Contains(p.ID, point, types) {
		covered[strings.ToLower(m.ServiceType)] = domain.ServiceAvailability{
			ServiceType: strings.ToLower(m.ServiceType),
			ProviderID:  p.ID,
			Available:   true,
			Confidence:  domain.ConfidenceHigh,
			Source:      domain.SourceStatic,
		}
	}

	// Approximate fallback: the nearest polygon within the bound counts
	// as a low-confidence positive.
	if p.Static.Fallback == domain.FallbackApproximate {
		for _, m := range s.geo.Nearest(p.ID, point, types, p.Static.MaxFallbackKM) {
			key := strings.ToLower(m.ServiceType)
			if _, ok := covered[key]; ok {
				continue
			}
			covered[key] = domain.ServiceAvailability{
				ServiceType: key,
				ProviderID:  p.ID,
				Available:   true,
				Confidence:  domain.ConfidenceLow,
				Source:      domain.SourceStatic,
			}
		}
	}

	// Everything requested but unmatched is a definite negative.
	services := make([]domain.ServiceAvailability, 0, len(types))
	for _, st := range types {
		key := strings.ToLower(st)
		if rec, ok := covered[key]; ok {
			services = append(services, rec)
			continue
		}
		services = append(services, domain.ServiceAvailability{
			ServiceType: key,
			ProviderID:  p.ID,
			Available:   false,
			Confidence:  domain.ConfidenceHigh,
			Source:      domain.SourceStatic,
		})
	}

	elapsed := time.Since(start)
	if s.sink != nil {
		s.sink.Report(telemetry.CallRecord{
			ProviderID: p.ID,
			Method:     "static",
			Success:    true,
			Duration:   elapsed,
		})
	}

	return domain.ProviderCoverageResult{
		ProviderID:   p.ID,
		Success:      true,
		ResponseTime: elapsed,
		Source:       domain.SourceStatic,
		Services:     services,
	}
}
