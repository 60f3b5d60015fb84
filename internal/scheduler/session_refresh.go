package scheduler

import (
	"context"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/gateway"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/registry"
)

// DefaultRefreshLead refreshes session tickets this long before expiry.
const DefaultRefreshLead = 2 * time.Minute

// SessionRefresher keeps session tickets of ticket-auth providers fresh
// ahead of their expiry so queries never pay a login on the hot path.
type SessionRefresher struct {
	registry *registry.Registry
	sessions *gateway.SessionManager
	logger   logger.Logger
	interval time.Duration
	lead     time.Duration

	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewSessionRefresher(
	reg *registry.Registry,
	sessions *gateway.SessionManager,
	log logger.Logger,
	interval time.Duration,
	lead time.Duration,
	manualTrigger chan struct{},
) *SessionRefresher {
	if lead <= 0 {
		lead = DefaultRefreshLead
	}
	return &SessionRefresher{
		registry:      reg,
		sessions:      sessions,
		logger:        log,
		interval:      interval,
		lead:          lead,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic refresh sweep.
func (sr *SessionRefresher) Start(ctx context.Context) error {
	sr.Sweep(ctx)

	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sr.Sweep(ctx)
			case <-sr.manualTrigger:
				sr.logger.Info("manual session refresh triggered")
				sr.Sweep(ctx)
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the refresher.
func (sr *SessionRefresher) Stop() {
	close(sr.stopCh)
}

// Sweep refreshes every auto-refresh ticket nearing expiry. Failures are
// logged and retried on the next sweep; the stale ticket stays usable
// until true expiry.
func (sr *SessionRefresher) Sweep(ctx context.Context) {
	for _, p := range sr.registry.All() {
		if !wantsAutoRefresh(p) {
			continue
		}
		if !sr.sessions.NeedsRefresh(p.ID, sr.lead) {
			continue
		}
		if _, err := sr.sessions.Refresh(ctx, p); err != nil {
			sr.logger.Warn("session refresh sweep failed",
				logger.String("provider", p.ID),
				logger.Error(err))
		}
	}
}

func wantsAutoRefresh(p *domain.Provider) bool {
	return p.Enabled &&
		p.Kind == domain.KindRemote &&
		p.Remote != nil &&
		p.Remote.Auth == domain.AuthSession &&
		p.Remote.AutoRefresh
}
