package gateway

import (
	"context"
	"testing"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/geometry"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
)

func staticProvider(fallback domain.FallbackBehavior) *domain.Provider {
	return &domain.Provider{
		ID: "vuma", Kind: domain.KindStatic, Enabled: true, Priority: 2,
		ServiceTypes: []string{"fibre", "5g"},
		Static:       &domain.StaticConfig{Fallback: fallback, MaxFallbackKM: 50},
	}
}

func jhbSquare(id, provider string, serviceTypes []string) *geometry.Dataset {
	ds, err := geometry.LoadDatasetFromBytes(id, []byte(`id: ` + id + `
provider: ` + provider + `
areas:
  - name: cbd
    service_types: [` + serviceTypes[0] + `]
    polygon:
      - [-26.25, 28.00]
      - [-26.25, 28.10]
      - [-26.15, 28.10]
      - [-26.15, 28.00]
`))
	if err != nil {
		panic(err)
	}
	return ds
}

func TestStaticQueryInsidePolygon(t *testing.T) {
	geo := geometry.NewStore()
	geo.Activate(jhbSquare("ds1", "vuma", []string{"5g"}))

	static := NewStatic(geo, nil, logger.New("error", false))
	result := static.Query(context.Background(), staticProvider(domain.FallbackNone),
		&domain.CoverageQuery{Latitude: -26.20, Longitude: 28.05, ServiceTypes: []string{"5g"}})

	if !result.Success {
		t.Fatal("static query should always succeed")
	}
	if len(result.Services) != 1 {
		t.Fatalf("got %d services, want 1", len(result.Services))
	}
	svc := result.Services[0]
	if !svc.Available || svc.Confidence != domain.ConfidenceHigh || svc.Source != domain.SourceStatic {
		t.Errorf("inside-polygon verdict = %+v, want available/high/static", svc)
	}
}

func TestStaticQueryOutsideNoFallback(t *testing.T) {
	geo := geometry.NewStore()
	geo.Activate(jhbSquare("ds1", "vuma", []string{"5g"}))

	static := NewStatic(geo, nil, logger.New("error", false))
	result := static.Query(context.Background(), staticProvider(domain.FallbackNone),
		&domain.CoverageQuery{Latitude: -26.30, Longitude: 28.05, ServiceTypes: []string{"5g"}})

	if len(result.Services) != 1 {
		t.Fatalf("got %d services, want 1", len(result.Services))
	}
	if result.Services[0].Available {
		t.Error("point outside every polygon with fallback=none must be unavailable")
	}
}

func TestStaticQueryApproximateFallback(t *testing.T) {
	geo := geometry.NewStore()
	geo.Activate(jhbSquare("ds1", "vuma", []string{"5g"}))

	static := NewStatic(geo, nil, logger.New("error", false))
	// Just south of the square, well within the 50km bound.
	result := static.Query(context.Background(), staticProvider(domain.FallbackApproximate),
		&domain.CoverageQuery{Latitude: -26.30, Longitude: 28.05, ServiceTypes: []string{"5g"}})

	if len(result.Services) != 1 {
		t.Fatalf("got %d services, want 1", len(result.Services))
	}
	svc := result.Services[0]
	if !svc.Available || svc.Confidence != domain.ConfidenceLow {
		t.Errorf("approximate match = %+v, want available with low confidence", svc)
	}
}
