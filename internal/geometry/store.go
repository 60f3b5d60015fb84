package geometry

import (
	"strings"
	"sync"
	"time"
)

// Store indexes active datasets for point-in-polygon lookup. It is safe
// for concurrent use; activation replaces a dataset atomically so queries
// see either the old or the new version, never a mix.
type Store struct {
	mu         sync.RWMutex
	datasets   map[string]*Dataset // dataset ID -> dataset
	byProvider map[string][]string // provider ID -> dataset IDs
	lastReload time.Time
}

// Match is one positive or approximate hit from a lookup.
type Match struct {
	DatasetID  string
	Area       string
	ServiceType string
	// Inside is true for a direct polygon hit; false for an
	// approximate (nearest-area) match.
	Inside     bool
	DistanceKM float64
}

func NewStore() *Store {
	return &Store{
		datasets:   make(map[string]*Dataset),
		byProvider: make(map[string][]string),
	}
}

// Activate inserts or replaces a dataset. Only active datasets are kept.
func (s *Store) Activate(ds *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.datasets[ds.ID]; ok {
		s.removeIndexLocked(old)
	}
	s.datasets[ds.ID] = ds
	s.byProvider[ds.ProviderID] = append(s.byProvider[ds.ProviderID], ds.ID)
	s.lastReload = time.Now()
}

// Deactivate removes a dataset from lookup.
func (s *Store) Deactivate(datasetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.datasets[datasetID]
	if !ok {
		return
	}
	s.removeIndexLocked(ds)
	delete(s.datasets, datasetID)
}

func (s *Store) removeIndexLocked(ds *Dataset) {
	ids := s.byProvider[ds.ProviderID]
	kept := ids[:0]
	for _, id := range ids {
		if id != ds.ID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(s.byProvider, ds.ProviderID)
	} else {
		s.byProvider[ds.ProviderID] = kept
	}
}

// ReplaceProvider swaps the full dataset set of one provider.
func (s *Store) ReplaceProvider(providerID string, datasets []*Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byProvider[providerID] {
		delete(s.datasets, id)
	}
	delete(s.byProvider, providerID)

	for _, ds := range datasets {
		s.datasets[ds.ID] = ds
		s.byProvider[providerID] = append(s.byProvider[providerID], ds.ID)
	}
	s.lastReload = time.Now()
}

// Contains returns a direct hit per service type for the provider's
// datasets covering the point. Requested service types filter the search;
// empty means all.
func (s *Store) Contains(providerID string, p Point, serviceTypes []string) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	seen := make(map[string]bool)

	for _, id := range s.byProvider[providerID] {
		ds := s.datasets[id]
		if ds == nil || ds.Status != StatusActive {
			continue
		}
		for i := range ds.Areas {
			area := &ds.Areas[i]
			for _, st := range area.ServiceTypes {
				if !wantsService(st, serviceTypes) || seen[strings.ToLower(st)] {
					continue
				}
				if area.contains(p) {
					seen[strings.ToLower(st)] = true
					matches = append(matches, Match{
						DatasetID:   ds.ID,
						Area:        area.Name,
						ServiceType: st,
						Inside:      true,
					})
				}
			}
		}
	}
	return matches
}

// Nearest finds the closest area per service type within maxKM that did
// not directly contain the point. Used for the approximate fallback.
func (s *Store) Nearest(providerID string, p Point, serviceTypes []string, maxKM float64) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := make(map[string]Match)

	for _, id := range s.byProvider[providerID] {
		ds := s.datasets[id]
		if ds == nil || ds.Status != StatusActive {
			continue
		}
		for i := range ds.Areas {
			area := &ds.Areas[i]
			d := area.distanceKM(p)
			if d > maxKM {
				continue
			}
			for _, st := range area.ServiceTypes {
				if !wantsService(st, serviceTypes) {
					continue
				}
				key := strings.ToLower(st)
				if cur, ok := best[key]; !ok || d < cur.DistanceKM {
					best[key] = Match{
						DatasetID:   ds.ID,
						Area:        area.Name,
						ServiceType: st,
						Inside:      false,
						DistanceKM:  d,
					}
				}
			}
		}
	}

	matches := make([]Match, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	return matches
}

// ServiceTypes returns the distinct service types a provider's active
// datasets cover.
func (s *Store) ServiceTypes(providerID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, id := range s.byProvider[providerID] {
		ds := s.datasets[id]
		if ds == nil || ds.Status != StatusActive {
			continue
		}
		for _, area := range ds.Areas {
			for _, st := range area.ServiceTypes {
				key := strings.ToLower(st)
				if !seen[key] {
					seen[key] = true
					types = append(types, st)
				}
			}
		}
	}
	return types
}

// Count returns the number of active datasets.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

// LastReload returns when the store content last changed.
func (s *Store) LastReload() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReload
}

func wantsService(serviceType string, requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	for _, st := range requested {
		if strings.EqualFold(st, serviceType) {
			return true
		}
	}
	return false
}
