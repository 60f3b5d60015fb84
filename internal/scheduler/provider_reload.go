package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/registry"
	"github.com/jdeweedata/circletel-sub016/internal/sources/providers"
)

// ProviderReloader handles periodic reloading of the provider definition
// file into the registry.
type ProviderReloader struct {
	loader        *providers.Loader
	mapper        *providers.Mapper
	registry      *registry.Registry
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewProviderReloader(
	providerFile string,
	reg *registry.Registry,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *ProviderReloader {
	return &ProviderReloader{
		loader:        providers.NewLoader(providerFile),
		mapper:        providers.NewMapper(),
		registry:      reg,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads providers immediately, then begins the periodic reload.
func (pr *ProviderReloader) Start(ctx context.Context) error {
	if err := pr.Reload(ctx); err != nil {
		return fmt.Errorf("initial provider reload failed: %w", err)
	}

	ticker := time.NewTicker(pr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := pr.Reload(ctx); err != nil {
					pr.logger.Error("failed to reload providers",
						logger.Error(err))
				}
			case <-pr.manualTrigger:
				pr.logger.Info("manual provider reload triggered")
				if err := pr.Reload(ctx); err != nil {
					pr.logger.Error("failed to reload providers",
						logger.Error(err))
				}
			case <-pr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader.
func (pr *ProviderReloader) Stop() {
	close(pr.stopCh)
}

// Reload parses the provider file and swaps the registry content.
// Malformed provider entries are skipped with a warning; they never block
// the valid ones.
func (pr *ProviderReloader) Reload(ctx context.Context) error {
	file, err := pr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load providers: %w", err)
	}

	mapped, mapErrs := pr.mapper.MapProviders(file)
	for _, merr := range mapErrs {
		pr.logger.Warn("skipping malformed provider definition",
			logger.Error(merr))
	}

	pr.registry.Replace(mapped)
	pr.logger.Info("providers reloaded",
		logger.Int("count", len(mapped)),
		logger.Int("skipped", len(mapErrs)))

	return nil
}
