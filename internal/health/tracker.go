package health

import (
	"sync"
	"time"
)

// Status classifies a provider's recent reliability.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
	// StatusUnknown applies before any call has been recorded.
	StatusUnknown Status = "unknown"
)

const (
	// DefaultWindowSize is the number of recent calls considered.
	DefaultWindowSize = 10
	// DefaultConsecutiveFailureLimit forces down regardless of rate.
	DefaultConsecutiveFailureLimit = 5
	// DefaultProbeInterval is the minimum gap between probes of a down
	// provider so it can recover.
	DefaultProbeInterval = 30 * time.Second

	healthyThreshold  = 0.9
	degradedThreshold = 0.5
)

// Record is a point-in-time snapshot of one provider's health.
type Record struct {
	ProviderID          string        `json:"provider_id"`
	Successes           int           `json:"successes"`
	Failures            int           `json:"failures"`
	SuccessRate         float64       `json:"success_rate"`
	AvgResponseTime     time.Duration `json:"avg_response_time_ns"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Status              Status        `json:"status"`
	LastCallAt          time.Time     `json:"last_call_at"`
}

type outcome struct {
	success bool
	latency time.Duration
}

// window is a fixed-size ring of the provider's most recent outcomes.
type window struct {
	mu           sync.Mutex
	outcomes     []outcome
	next         int
	filled       int
	consecFails  int
	lastCall     time.Time
	lastProbe    time.Time
}

// Tracker maintains rolling per-provider call outcomes. Locking is
// per-provider; recording for one provider never blocks another.
type Tracker struct {
	mu         sync.RWMutex
	windows    map[string]*window
	windowSize int
	failLimit  int
	probeGap   time.Duration
}

func NewTracker() *Tracker {
	return NewTrackerWith(DefaultWindowSize, DefaultConsecutiveFailureLimit, DefaultProbeInterval)
}

// NewTrackerWith builds a tracker with explicit window size, consecutive
// failure limit, and down-probe interval.
func NewTrackerWith(windowSize, failLimit int, probeGap time.Duration) *Tracker {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	if failLimit < 1 {
		failLimit = DefaultConsecutiveFailureLimit
	}
	return &Tracker{
		windows:    make(map[string]*window),
		windowSize: windowSize,
		failLimit:  failLimit,
		probeGap:   probeGap,
	}
}

func (t *Tracker) windowFor(providerID string) *window {
	t.mu.RLock()
	w, ok := t.windows[providerID]
	t.mu.RUnlock()
	if ok {
		return w
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok = t.windows[providerID]; ok {
		return w
	}
	w = &window{outcomes: make([]outcome, t.windowSize)}
	t.windows[providerID] = w
	return w
}

// Observe records one call outcome for a provider.
func (t *Tracker) Observe(providerID string, success bool, latency time.Duration) {
	w := t.windowFor(providerID)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.outcomes[w.next] = outcome{success: success, latency: latency}
	w.next = (w.next + 1) % len(w.outcomes)
	if w.filled < len(w.outcomes) {
		w.filled++
	}
	if success {
		w.consecFails = 0
	} else {
		w.consecFails++
	}
	w.lastCall = time.Now()
}

// Snapshot derives the current health record for a provider.
func (t *Tracker) Snapshot(providerID string) Record {
	w := t.windowFor(providerID)

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked(providerID, t.failLimit)
}

func (w *window) snapshotLocked(providerID string, failLimit int) Record {
	rec := Record{
		ProviderID:          providerID,
		ConsecutiveFailures: w.consecFails,
		LastCallAt:          w.lastCall,
		Status:              StatusUnknown,
	}
	if w.filled == 0 {
		return rec
	}

	var total time.Duration
	for i := 0; i < w.filled; i++ {
		o := w.outcomes[i]
		if o.success {
			rec.Successes++
		} else {
			rec.Failures++
		}
		total += o.latency
	}
	rec.SuccessRate = float64(rec.Successes) / float64(w.filled)
	rec.AvgResponseTime = total / time.Duration(w.filled)

	switch {
	case w.consecFails >= failLimit:
		rec.Status = StatusDown
	case rec.SuccessRate >= healthyThreshold:
		rec.Status = StatusHealthy
	case rec.SuccessRate >= degradedThreshold:
		rec.Status = StatusDegraded
	default:
		rec.Status = StatusDown
	}
	return rec
}

// Status returns the derived status only.
func (t *Tracker) Status(providerID string) Status {
	return t.Snapshot(providerID).Status
}

// AdmitProbe reports whether a down provider should be probed now. Down
// providers are not excluded forever: one probe is admitted per probe
// interval so the provider can transition back once it recovers.
func (t *Tracker) AdmitProbe(providerID string) bool {
	w := t.windowFor(providerID)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if now.Sub(w.lastProbe) < t.probeGap {
		return false
	}
	w.lastProbe = now
	return true
}

// All returns the health record of every tracked provider.
func (t *Tracker) All() []Record {
	t.mu.RLock()
	ids := make([]string, 0, len(t.windows))
	for id := range t.windows {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, t.Snapshot(id))
	}
	return records
}
