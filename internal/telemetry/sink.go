package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/health"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/metrics"
)

// CallRecord captures one provider call for audit and health derivation.
type CallRecord struct {
	ProviderID string        `json:"provider_id"`
	URL        string        `json:"url,omitempty"`
	Method     string        `json:"method,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
	At         time.Time     `json:"at"`
}

// Reporter is the write side handed to the provider gateway.
type Reporter interface {
	Report(rec CallRecord)
}

// LogStore persists call records for the operational log API.
type LogStore interface {
	AppendCallLog(ctx context.Context, rec CallRecord) error
}

// Sink asynchronously fans call records out to the health tracker, the
// call-log store, and metrics. Report never blocks a query path: when the
// buffer is full the record is dropped and counted.
type Sink struct {
	ch      chan CallRecord
	tracker *health.Tracker
	store   LogStore
	logger  logger.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

const (
	defaultBuffer = 256

	// drainTimeout bounds the final flush so Stop cannot hang on a
	// slow or unreachable log store.
	drainTimeout = 5 * time.Second
)

func NewSink(tracker *health.Tracker, store LogStore, log logger.Logger) *Sink {
	return &Sink{
		ch:      make(chan CallRecord, defaultBuffer),
		tracker: tracker,
		store:   store,
		logger:  log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the sink worker. The worker's lifetime is bound to
// Stop, not ctx: records reported while the server drains in-flight
// requests during shutdown must still reach the tracker and the log.
func (s *Sink) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	go func() {
		defer close(s.doneCh)
		for {
			select {
			case rec := <-s.ch:
				s.process(base, rec)
			case <-s.stopCh:
				dctx, cancel := context.WithTimeout(base, drainTimeout)
				s.drain(dctx)
				cancel()
				return
			}
		}
	}()
}

// Stop flushes buffered records and stops the worker.
func (s *Sink) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

// Report enqueues a call record without blocking.
func (s *Sink) Report(rec CallRecord) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	select {
	case s.ch <- rec:
	default:
		metrics.TelemetryDropped()
		s.logger.Warn("telemetry buffer full, dropping call record",
			logger.String("provider", rec.ProviderID))
	}
}

func (s *Sink) process(ctx context.Context, rec CallRecord) {
	if s.tracker != nil {
		s.tracker.Observe(rec.ProviderID, rec.Success, rec.Duration)
	}
	metrics.ObserveProviderCall(rec.ProviderID, rec.Duration, rec.Success)

	if s.store != nil {
		if err := s.store.AppendCallLog(ctx, rec); err != nil {
			s.logger.Warn("failed to persist call record",
				logger.String("provider", rec.ProviderID),
				logger.Error(err))
		}
	}
}

func (s *Sink) drain(ctx context.Context) {
	for {
		select {
		case rec := <-s.ch:
			s.process(ctx, rec)
		default:
			return
		}
	}
}
