package domain

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// CoverageQuery is the engine's input: a point plus optional filters.
// Queries are ephemeral and never persisted.
type CoverageQuery struct {
	Latitude  float64
	Longitude float64

	// Address is informational only; callers resolve addresses to
	// coordinates before handing the query to the engine.
	Address string

	// ServiceTypes restricts the query to a subset of service types.
	// Empty means all service types the providers support.
	ServiceTypes []string

	// Providers restricts the query to an explicit provider subset by ID.
	Providers []string

	// IncludeSignal asks remote providers for signal detail where
	// supported.
	IncludeSignal bool
}

// Validate checks coordinate presence and range.
func (q *CoverageQuery) Validate() error {
	if q == nil {
		return &InvalidQueryError{Reason: "query is nil"}
	}
	if q.Latitude == 0 && q.Longitude == 0 && q.Address == "" {
		return &InvalidQueryError{Reason: "coordinates are required"}
	}
	if q.Latitude < -90 || q.Latitude > 90 {
		return &InvalidQueryError{Reason: fmt.Sprintf("latitude %.6f out of range [-90, 90]", q.Latitude)}
	}
	if q.Longitude < -180 || q.Longitude > 180 {
		return &InvalidQueryError{Reason: fmt.Sprintf("longitude %.6f out of range [-180, 180]", q.Longitude)}
	}
	return nil
}

// Fingerprint derives the normalized cache key for the query: coordinates
// rounded to 4 decimal places (~11m), plus the sorted service-type and
// provider filters. Two queries with the same fingerprint are
// interchangeable for caching purposes.
func (q *CoverageQuery) Fingerprint() string {
	types := normalizeSet(q.ServiceTypes)
	providers := normalizeSet(q.Providers)

	canonical := fmt.Sprintf("%.4f|%.4f|%s|%s|%t",
		q.Latitude, q.Longitude,
		strings.Join(types, ","),
		strings.Join(providers, ","),
		q.IncludeSignal,
	)

	h := fnv.New64a()
	_, _ = h.Write([]byte(canonical))
	return fmt.Sprintf("%016x", h.Sum64())
}

// normalizeSet lowercases, dedupes and sorts a filter list.
func normalizeSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
