package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/gateway"
	"github.com/jdeweedata/circletel-sub016/internal/health"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/metrics"
	"github.com/jdeweedata/circletel-sub016/internal/ratelimit"
	"github.com/jdeweedata/circletel-sub016/internal/registry"
)

const (
	// DefaultOverallDeadline bounds one resolution end to end. Stragglers
	// past the deadline are recorded as timeouts, not waited for.
	DefaultOverallDeadline = 10 * time.Second
	// DefaultCacheTTL is used when no TTL is configured.
	DefaultCacheTTL = 5 * time.Minute
)

// ResultCache is the subset of the store the orchestrator needs. A miss
// returns (nil, false, nil).
type ResultCache interface {
	GetResult(ctx context.Context, fingerprint string) (*domain.AggregatedResult, bool, error)
	SaveResult(ctx context.Context, fingerprint string, result *domain.AggregatedResult, ttl time.Duration) error
}

// Options tunes orchestrator behavior. Zero values take defaults.
type Options struct {
	CacheTTL        time.Duration
	OverallDeadline time.Duration
}

// Orchestrator runs the full resolution pipeline: validate, cache check,
// candidate selection, concurrent fan-out, aggregation, cache write.
type Orchestrator struct {
	registry *registry.Registry
	gateway  gateway.Gateway
	tracker  *health.Tracker
	limiter  *ratelimit.Limiter
	cache    ResultCache
	logger   logger.Logger

	cacheTTL        time.Duration
	overallDeadline time.Duration
}

// New wires an orchestrator. cache may be nil, in which case every query
// resolves fresh.
func New(reg *registry.Registry, gw gateway.Gateway, tracker *health.Tracker, limiter *ratelimit.Limiter, cache ResultCache, log logger.Logger, opts Options) *Orchestrator {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.OverallDeadline <= 0 {
		opts.OverallDeadline = DefaultOverallDeadline
	}
	return &Orchestrator{
		registry:        reg,
		gateway:         gw,
		tracker:         tracker,
		limiter:         limiter,
		cache:           cache,
		logger:          log,
		cacheTTL:        opts.CacheTTL,
		overallDeadline: opts.OverallDeadline,
	}
}

// Resolve answers one coverage query. Partial provider failures degrade
// the result; an error is returned only when no provider is eligible or
// every dispatched provider failed.
func (o *Orchestrator) Resolve(ctx context.Context, q *domain.CoverageQuery) (*domain.AggregatedResult, error) {
	start := time.Now()

	if err := q.Validate(); err != nil {
		return nil, err
	}
	fingerprint := q.Fingerprint()

	if o.cache != nil {
		cached, ok, err := o.cache.GetResult(ctx, fingerprint)
		if err != nil {
			o.logger.Warn("cache read failed, resolving fresh", logger.Error(err))
		}
		if ok {
			metrics.CacheHit()
			metrics.ObserveResolution(time.Since(start), metrics.OutcomeSuccess)
			return cached, nil
		}
		metrics.CacheMiss()
	}

	eligible := o.registry.Eligible(q.ServiceTypes, q.Providers)
	if len(eligible) == 0 {
		metrics.ObserveResolution(time.Since(start), metrics.OutcomeError)
		return nil, domain.ErrNoCoverageFound
	}

	candidates, lastResort := o.gateByHealth(eligible, q)
	results := o.fanOut(ctx, candidates, q)

	failures := make([]*domain.ProviderError, 0, len(results))
	successes := 0
	for _, res := range results {
		if res.Success {
			successes++
			continue
		}
		failures = append(failures, &domain.ProviderError{
			ProviderID: res.ProviderID,
			Kind:       res.ErrorKind,
			Err:        fmt.Errorf("%s", res.Error),
		})
	}
	if successes == 0 {
		metrics.ObserveResolution(time.Since(start), metrics.OutcomeError)
		return nil, &domain.AllProvidersFailedError{Causes: failures}
	}

	lookup := o.registry.Lookup()
	result := &domain.AggregatedResult{
		Services:        domain.Merge(results, lookup),
		Providers:       results,
		Recommendations: domain.Recommend(results, lookup),
		Metadata: domain.ResultMetadata{
			RequestID:      uuid.NewString(),
			SourcesUsed:    sourcesUsed(results),
			FromCache:      false,
			LastResort:     lastResort,
			ProcessingTime: time.Since(start),
			GeneratedAt:    time.Now().UTC(),
		},
	}

	if o.cache != nil {
		// The stored copy is tagged as cache-served so every hit within
		// the TTL returns an identical payload.
		stored := *result
		stored.Metadata.FromCache = true
		if err := o.cache.SaveResult(ctx, fingerprint, &stored, o.cacheTTL); err != nil {
			o.logger.Warn("cache write failed", logger.Error(err))
		}
	}

	metrics.ObserveResolution(time.Since(start), metrics.OutcomeSuccess)
	return result, nil
}

// TestProvider probes one provider directly, bypassing the cache and the
// health gate. Used by the diagnostic endpoint.
func (o *Orchestrator) TestProvider(ctx context.Context, providerID string, q *domain.CoverageQuery) (*domain.ProviderCoverageResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	p, ok := o.registry.Get(providerID)
	if !ok {
		return nil, &domain.ConfigurationError{ProviderID: providerID, Reason: "unknown provider"}
	}

	ctx, cancel := context.WithTimeout(ctx, o.overallDeadline)
	defer cancel()

	res := o.callOne(ctx, p, q)
	return &res, nil
}

// gateByHealth drops down providers unless they are due for a recovery
// probe or no non-down provider covers one of their service types. The
// second case marks the result as last resort.
func (o *Orchestrator) gateByHealth(eligible []*domain.Provider, q *domain.CoverageQuery) ([]*domain.Provider, bool) {
	up := make([]*domain.Provider, 0, len(eligible))
	var down []*domain.Provider
	for _, p := range eligible {
		if o.tracker.Status(p.ID) == health.StatusDown {
			down = append(down, p)
		} else {
			up = append(up, p)
		}
	}
	if len(down) == 0 {
		return up, false
	}

	covered := make(map[string]bool)
	for _, p := range up {
		for _, st := range requestedTypes(p, q) {
			covered[st] = true
		}
	}

	lastResort := false
	for _, p := range down {
		needed := false
		for _, st := range requestedTypes(p, q) {
			if !covered[st] {
				needed = true
				break
			}
		}
		if needed {
			up = append(up, p)
			lastResort = true
			continue
		}
		if o.tracker.AdmitProbe(p.ID) {
			up = append(up, p)
		}
	}
	domain.SortByPriority(up)
	return up, lastResort
}

// fanOut dispatches every candidate concurrently and collects results up
// to the overall deadline. Candidates that do not report in time are
// recorded as timeout failures.
func (o *Orchestrator) fanOut(ctx context.Context, candidates []*domain.Provider, q *domain.CoverageQuery) []domain.ProviderCoverageResult {
	octx, cancel := context.WithTimeout(ctx, o.overallDeadline)
	defer cancel()

	ch := make(chan domain.ProviderCoverageResult, len(candidates))
	for _, p := range candidates {
		go func(p *domain.Provider) {
			ch <- o.callOne(octx, p, q)
		}(p)
	}

	received := make(map[string]bool, len(candidates))
	results := make([]domain.ProviderCoverageResult, 0, len(candidates))

collect:
	for range candidates {
		select {
		case res := <-ch:
			received[res.ProviderID] = true
			results = append(results, res)
		case <-octx.Done():
			break collect
		}
	}

	for _, p := range candidates {
		if received[p.ID] {
			continue
		}
		results = append(results, domain.ProviderCoverageResult{
			ProviderID: p.ID,
			Success:    false,
			Error:      "provider did not complete before the query deadline",
			ErrorKind:  domain.ErrKindTimeout,
		})
	}

	sortResults(results, o.registry.Lookup())
	return results
}

// callOne gates one provider call through the rate limiter and the
// gateway. Health and per-call metrics flow through the telemetry sink
// fed by the gateway.
func (o *Orchestrator) callOne(ctx context.Context, p *domain.Provider, q *domain.CoverageQuery) domain.ProviderCoverageResult {
	rpm := 0
	if p.Remote != nil {
		rpm = p.Remote.RateLimitRPM
	}
	if err := o.limiter.Acquire(ctx, p.ID, rpm); err != nil {
		// A context error while waiting for a token means the query
		// deadline hit, not that the provider was throttled.
		kind := domain.ErrKindRateLimited
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			kind = domain.ErrKindTimeout
		}
		return domain.ProviderCoverageResult{
			ProviderID: p.ID,
			Success:    false,
			Error:      err.Error(),
			ErrorKind:  kind,
		}
	}
	return o.gateway.Query(ctx, p, q)
}

// sourcesUsed lists the distinct sources of successful results, in
// provider order.
func sourcesUsed(results []domain.ProviderCoverageResult) []string {
	seen := make(map[domain.Source]bool, 3)
	sources := make([]string, 0, 3)
	for _, res := range results {
		if !res.Success || seen[res.Source] {
			continue
		}
		seen[res.Source] = true
		sources = append(sources, string(res.Source))
	}
	return sources
}

// sortResults orders provider results by priority then ID so the
// aggregate payload is deterministic for identical inputs.
func sortResults(results []domain.ProviderCoverageResult, providers map[string]*domain.Provider) {
	sort.Slice(results, func(i, j int) bool {
		pi := priorityOf(results[i].ProviderID, providers)
		pj := priorityOf(results[j].ProviderID, providers)
		if pi != pj {
			return pi < pj
		}
		return results[i].ProviderID < results[j].ProviderID
	})
}

func priorityOf(id string, providers map[string]*domain.Provider) int {
	if p, ok := providers[id]; ok {
		return p.Priority
	}
	return int(^uint(0) >> 1)
}

// requestedTypes intersects the query's service filter with a provider's
// supported set.
func requestedTypes(p *domain.Provider, q *domain.CoverageQuery) []string {
	if len(q.ServiceTypes) == 0 {
		return p.ServiceTypes
	}
	var types []string
	for _, st := range q.ServiceTypes {
		if p.SupportsService(st) {
			types = append(types, st)
		}
	}
	return types
}
