// Package wages fetches wage evidence for matched pairs lazily.
package wages

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/ChefStevePopp/cheflife-sync/pkg/metrics"
	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
	"github.com/ChefStevePopp/cheflife-sync/pkg/redis"
	"github.com/ChefStevePopp/cheflife-sync/pkg/tracing"
)

// DefaultWorkers is the default number of concurrent wage fetches
const DefaultWorkers = 4

// Source returns wage snapshots from the workforce provider.
// Implemented by provider.Client.
type Source interface {
	ListWages(ctx context.Context, userID int) (*models.WageSnapshot, error)
}

// Fetcher fetches wage snapshots with caching, request deduplication and
// a bounded number of concurrent provider calls.
type Fetcher struct {
	source  Source
	cache   *redis.Cache
	logger  ectologger.Logger
	workers chan struct{}

	mu       sync.Mutex
	inflight map[int]*call
}

type call struct {
	done     chan struct{}
	snapshot *models.WageSnapshot
	err      error
}

// NewFetcher creates a new wage fetcher. cache may be nil to disable caching.
func NewFetcher(source Source, cache *redis.Cache, workers int, logger ectologger.Logger) *Fetcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Fetcher{
		source:   source,
		cache:    cache,
		logger:   logger,
		workers:  make(chan struct{}, workers),
		inflight: make(map[int]*call),
	}
}

// Fetch returns the wage snapshot for one provider user. Concurrent calls for
// the same user share a single provider request.
func (f *Fetcher) Fetch(ctx context.Context, userID int) (*models.WageSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "wages.Fetcher.Fetch")
	defer span.End()

	if snapshot, ok := f.fromCache(ctx, userID); ok {
		metrics.WageFetchesTotal.WithLabelValues("cache_hit").Inc()
		return snapshot, nil
	}

	f.mu.Lock()
	if c, ok := f.inflight[userID]; ok {
		f.mu.Unlock()
		select {
		case <-c.done:
			return c.snapshot, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	f.inflight[userID] = c
	f.mu.Unlock()

	c.snapshot, c.err = f.fetch(ctx, userID)
	close(c.done)

	f.mu.Lock()
	delete(f.inflight, userID)
	f.mu.Unlock()

	return c.snapshot, c.err
}

func (f *Fetcher) fetch(ctx context.Context, userID int) (*models.WageSnapshot, error) {
	// Wait for a worker slot
	select {
	case f.workers <- struct{}{}:
		defer func() { <-f.workers }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	snapshot, err := f.source.ListWages(ctx, userID)
	if err != nil {
		metrics.WageFetchesTotal.WithLabelValues("error").Inc()
		f.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"external_user_id": userID,
		}).Error("Failed to fetch wages")
		return nil, err
	}

	metrics.WageFetchesTotal.WithLabelValues("fetched").Inc()
	f.toCache(ctx, userID, snapshot)

	return snapshot, nil
}

// Prefetch warms the cache for a set of provider users. Errors on individual
// users are logged and skipped; the first context error aborts the run.
func (f *Fetcher) Prefetch(ctx context.Context, userIDs []int) {
	ctx, span := tracing.StartSpan(ctx, "wages.Fetcher.Prefetch")
	defer span.End()

	var wg sync.WaitGroup
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := f.Fetch(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
				f.logger.WithContext(ctx).WithError(err).Debugf("Wage prefetch failed for user %d", id)
			}
		}(userID)
	}
	wg.Wait()
}

func (f *Fetcher) fromCache(ctx context.Context, userID int) (*models.WageSnapshot, bool) {
	if f.cache == nil {
		return nil, false
	}

	var snapshot models.WageSnapshot
	err := f.cache.GetJSON(ctx, strconv.Itoa(userID), &snapshot)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			f.logger.WithContext(ctx).WithError(err).Debug("Wage cache read failed")
		}
		return nil, false
	}

	return &snapshot, true
}

func (f *Fetcher) toCache(ctx context.Context, userID int, snapshot *models.WageSnapshot) {
	if f.cache == nil || snapshot == nil {
		return
	}

	if err := f.cache.SetJSON(ctx, strconv.Itoa(userID), snapshot); err != nil {
		f.logger.WithContext(ctx).WithError(err).Debug("Wage cache write failed")
	}
}
