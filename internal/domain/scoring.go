package domain

import (
	"fmt"
	"sort"
)

const (
	// Scoring weights. Confidence dominates, signal quality refines,
	// provider priority nudges. The weighted sum is scaled to 0-100.
	ScoreConfidenceWeight = 0.55
	ScoreSignalWeight     = 0.25
	ScorePriorityWeight   = 0.20
)

// Merge folds all provider results into one representative
// ServiceAvailability per service type. A service type is available when
// at least one provider reports it available; the highest-confidence
// positive record wins, ties broken by provider priority then ID.
func Merge(results []ProviderCoverageResult, providers map[string]*Provider) map[string]ServiceAvailability {
	merged := make(map[string]ServiceAvailability)

	for _, res := range results {
		for _, svc := range res.Services {
			current, exists := merged[svc.ServiceType]
			if !exists {
				merged[svc.ServiceType] = svc
				continue
			}
			if betterRecord(svc, current, providers) {
				merged[svc.ServiceType] = svc
			}
		}
	}

	return merged
}

// betterRecord reports whether a should replace b as the representative
// record for a service type.
func betterRecord(a, b ServiceAvailability, providers map[string]*Provider) bool {
	// Any positive beats any negative.
	if a.Available != b.Available {
		return a.Available
	}
	if a.Confidence.Weight() != b.Confidence.Weight() {
		return a.Confidence.Weight() > b.Confidence.Weight()
	}
	pa, pb := providerPriority(a.ProviderID, providers), providerPriority(b.ProviderID, providers)
	if pa != pb {
		return pa < pb
	}
	return a.ProviderID < b.ProviderID
}

// Recommend scores every positive (service type, provider) pair and
// returns them ranked descending, ties broken by provider priority
// ascending then provider ID.
func Recommend(results []ProviderCoverageResult, providers map[string]*Provider) []ServiceRecommendation {
	recs := make([]ServiceRecommendation, 0, len(results))

	for _, res := range results {
		for _, svc := range res.Services {
			if !svc.Available {
				continue
			}
			recs = append(recs, scoreOffering(svc, providers))
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		pi := providerPriority(recs[i].ProviderID, providers)
		pj := providerPriority(recs[j].ProviderID, providers)
		if pi != pj {
			return pi < pj
		}
		return recs[i].ProviderID < recs[j].ProviderID
	})

	return recs
}

// scoreOffering computes the weighted score and its textual reasons for
// one positive availability record.
func scoreOffering(svc ServiceAvailability, providers map[string]*Provider) ServiceRecommendation {
	reasons := make([]string, 0, 3)

	confTerm := svc.Confidence.Weight()
	reasons = append(reasons, fmt.Sprintf("%s confidence from %s source", svc.Confidence, svc.Source))

	signalTerm := 0.0
	if svc.Signal != nil {
		signalTerm = clamp01(*svc.Signal)
		reasons = append(reasons, fmt.Sprintf("signal strength %.2f", signalTerm))
	}

	priority := providerPriority(svc.ProviderID, providers)
	priorityTerm := 1.0 / float64(priority+1)
	reasons = append(reasons, fmt.Sprintf("provider priority %d", priority))

	score := 100 * (ScoreConfidenceWeight*confTerm +
		ScoreSignalWeight*signalTerm +
		ScorePriorityWeight*priorityTerm)

	return ServiceRecommendation{
		ServiceType: svc.ServiceType,
		ProviderID:  svc.ProviderID,
		Score:       score,
		Reasons:     reasons,
	}
}

// providerPriority looks up a provider's priority, treating unknown
// providers as least preferred.
func providerPriority(id string, providers map[string]*Provider) int {
	if p, ok := providers[id]; ok {
		return p.Priority
	}
	return int(^uint(0) >> 1)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
