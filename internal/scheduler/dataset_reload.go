package scheduler

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/geometry"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/registry"
)

// CacheInvalidator drops cached results a provider contributed to. The
// redis store satisfies it.
type CacheInvalidator interface {
	InvalidateProvider(ctx context.Context, providerID string) error
}

// DatasetReloader scans every static provider's dataset directory and
// atomically swaps that provider's active datasets in the geometry store
// when the files change. A swap invalidates the provider's cached
// results so stale availability never outlives a dataset update.
type DatasetReloader struct {
	registry *registry.Registry
	geo      *geometry.Store
	cache    CacheInvalidator
	logger   logger.Logger
	interval time.Duration

	// digests tracks the last seen content hash per provider so
	// unchanged directories are not re-activated.
	digests map[string]uint64

	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewDatasetReloader(
	reg *registry.Registry,
	geo *geometry.Store,
	cache CacheInvalidator,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *DatasetReloader {
	return &DatasetReloader{
		registry:      reg,
		geo:           geo,
		cache:         cache,
		logger:        log,
		interval:      interval,
		digests:       make(map[string]uint64),
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start performs an initial scan, then rescans on the interval or on a
// manual trigger.
func (dr *DatasetReloader) Start(ctx context.Context) error {
	dr.Reload(ctx)

	ticker := time.NewTicker(dr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				dr.Reload(ctx)
			case <-dr.manualTrigger:
				dr.logger.Info("manual dataset reload triggered")
				dr.Reload(ctx)
			case <-dr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader.
func (dr *DatasetReloader) Stop() {
	close(dr.stopCh)
}

// Reload rescans all static providers. A provider with a malformed or
// unreadable dataset keeps its previously active datasets; other
// providers still reload.
func (dr *DatasetReloader) Reload(ctx context.Context) {
	for _, p := range dr.registry.All() {
		if p.Kind != domain.KindStatic || p.Static == nil {
			continue
		}
		dr.reloadProvider(ctx, p)
	}
}

func (dr *DatasetReloader) reloadProvider(ctx context.Context, p *domain.Provider) {
	paths, err := datasetFiles(p.Static.DatasetDir)
	if err != nil {
		dr.logger.Warn("failed to scan dataset directory",
			logger.String("provider", p.ID),
			logger.String("dir", p.Static.DatasetDir),
			logger.Error(err))
		return
	}

	digest := fnv.New64a()
	datasets := make([]*geometry.Dataset, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			dr.logger.Warn("failed to read dataset file",
				logger.String("provider", p.ID),
				logger.String("file", path),
				logger.Error(err))
			return
		}
		_, _ = digest.Write([]byte(path))
		_, _ = digest.Write(data)

		ds, err := geometry.LoadDatasetFromBytes(filepath.Base(path), data)
		if err != nil {
			// Malformed geometry excludes the whole directory scan;
			// previously active datasets stay in service.
			dr.logger.Warn("excluding malformed dataset",
				logger.String("provider", p.ID),
				logger.String("file", path),
				logger.Error(err))
			return
		}
		datasets = append(datasets, ds)
	}

	sum := digest.Sum64()
	if prev, ok := dr.digests[p.ID]; ok && prev == sum {
		return
	}

	dr.geo.ReplaceProvider(p.ID, datasets)
	dr.digests[p.ID] = sum
	dr.logger.Info("static datasets activated",
		logger.String("provider", p.ID),
		logger.Int("datasets", len(datasets)))

	if dr.cache != nil {
		if err := dr.cache.InvalidateProvider(ctx, p.ID); err != nil {
			dr.logger.Warn("failed to invalidate provider cache",
				logger.String("provider", p.ID),
				logger.Error(err))
		}
	}
}

// datasetFiles lists the yaml files of a dataset directory in stable
// order.
func datasetFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
