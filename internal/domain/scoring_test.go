package domain

import "testing"

func providerMap(providers ...*Provider) map[string]*Provider {
	m := make(map[string]*Provider, len(providers))
	for _, p := range providers {
		m[p.ID] = p
	}
	return m
}

func TestMergeAnyPositiveWins(t *testing.T) {
	providers := providerMap(
		&Provider{ID: "alpha", Priority: 1},
		&Provider{ID: "beta", Priority: 2},
	)

	results := []ProviderCoverageResult{
		{
			ProviderID: "alpha", Success: true,
			Services: []ServiceAvailability{
				{ServiceType: "fibre", ProviderID: "alpha", Available: false, Confidence: ConfidenceHigh, Source: SourceAPI},
			},
		},
		{
			ProviderID: "beta", Success: true,
			Services: []ServiceAvailability{
				{ServiceType: "fibre", ProviderID: "beta", Available: true, Confidence: ConfidenceLow, Source: SourceStatic},
			},
		},
	}

	merged := Merge(results, providers)

	rec, ok := merged["fibre"]
	if !ok {
		t.Fatal("Merge() lost the fibre service type")
	}
	if !rec.Available {
		t.Error("Merge() should mark fibre available when any provider says so")
	}
	if rec.ProviderID != "beta" {
		t.Errorf("Merge() representative = %s, want beta", rec.ProviderID)
	}
}

func TestMergeConfidenceThenPriority(t *testing.T) {
	providers := providerMap(
		&Provider{ID: "alpha", Priority: 2},
		&Provider{ID: "beta", Priority: 1},
	)

	highVsMedium := []ProviderCoverageResult{
		{ProviderID: "alpha", Services: []ServiceAvailability{
			{ServiceType: "5g", ProviderID: "alpha", Available: true, Confidence: ConfidenceHigh},
		}},
		{ProviderID: "beta", Services: []ServiceAvailability{
			{ServiceType: "5g", ProviderID: "beta", Available: true, Confidence: ConfidenceMedium},
		}},
	}
	if got := Merge(highVsMedium, providers)["5g"].ProviderID; got != "alpha" {
		t.Errorf("higher confidence should win regardless of priority, got %s", got)
	}

	equalConfidence := []ProviderCoverageResult{
		{ProviderID: "alpha", Services: []ServiceAvailability{
			{ServiceType: "5g", ProviderID: "alpha", Available: true, Confidence: ConfidenceHigh},
		}},
		{ProviderID: "beta", Services: []ServiceAvailability{
			{ServiceType: "5g", ProviderID: "beta", Available: true, Confidence: ConfidenceHigh},
		}},
	}
	if got := Merge(equalConfidence, providers)["5g"].ProviderID; got != "beta" {
		t.Errorf("equal confidence should fall back to priority, got %s", got)
	}
}

func TestRecommendRankingStability(t *testing.T) {
	// Identical score inputs except priority: the priority-1 provider
	// must sort first.
	providers := providerMap(
		&Provider{ID: "second", Priority: 2},
		&Provider{ID: "first", Priority: 1},
	)

	results := []ProviderCoverageResult{
		{ProviderID: "second", Services: []ServiceAvailability{
			{ServiceType: "fibre", ProviderID: "second", Available: true, Confidence: ConfidenceHigh},
		}},
		{ProviderID: "first", Services: []ServiceAvailability{
			{ServiceType: "fibre", ProviderID: "first", Available: true, Confidence: ConfidenceHigh},
		}},
	}

	recs := Recommend(results, providers)
	if len(recs) != 2 {
		t.Fatalf("Recommend() returned %d recommendations, want 2", len(recs))
	}
	if recs[0].ProviderID != "first" {
		t.Errorf("priority-1 provider should rank first, got %s", recs[0].ProviderID)
	}
	if recs[0].Score <= recs[1].Score-0.0001 {
		t.Errorf("lower-priority provider scored higher: %.2f vs %.2f", recs[0].Score, recs[1].Score)
	}
}

func TestRecommendSkipsUnavailable(t *testing.T) {
	providers := providerMap(&Provider{ID: "alpha", Priority: 1})

	results := []ProviderCoverageResult{
		{ProviderID: "alpha", Services: []ServiceAvailability{
			{ServiceType: "fibre", ProviderID: "alpha", Available: false, Confidence: ConfidenceHigh},
			{ServiceType: "5g", ProviderID: "alpha", Available: true, Confidence: ConfidenceMedium},
		}},
	}

	recs := Recommend(results, providers)
	if len(recs) != 1 {
		t.Fatalf("Recommend() returned %d recommendations, want 1", len(recs))
	}
	if recs[0].ServiceType != "5g" {
		t.Errorf("Recommend() kept %s, want 5g", recs[0].ServiceType)
	}
}

func TestRecommendScoreBounds(t *testing.T) {
	providers := providerMap(&Provider{ID: "alpha", Priority: 0})
	signal := 1.0

	results := []ProviderCoverageResult{
		{ProviderID: "alpha", Services: []ServiceAvailability{
			{ServiceType: "fibre", ProviderID: "alpha", Available: true, Confidence: ConfidenceHigh, Signal: &signal},
		}},
	}

	recs := Recommend(results, providers)
	if len(recs) != 1 {
		t.Fatalf("Recommend() returned %d recommendations, want 1", len(recs))
	}
	if recs[0].Score < 0 || recs[0].Score > 100 {
		t.Errorf("score %.2f outside [0, 100]", recs[0].Score)
	}
	if len(recs[0].Reasons) == 0 {
		t.Error("recommendation should carry scoring reasons")
	}
}
