package wages

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
)

type stubSource struct {
	calls   atomic.Int64
	delay   time.Duration
	entered chan struct{}
	release chan struct{}
	err     error
}

func (s *stubSource) ListWages(ctx context.Context, userID int) (*models.WageSnapshot, error) {
	s.calls.Add(1)
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.WageSnapshot{
		CurrentWages: []models.WageRecord{{WageCents: userID * 100, WageType: models.WageTypeHourly}},
	}, nil
}

func newTestFetcher(source Source, workers int) *Fetcher {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewFetcher(source, nil, workers, logger)
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	source := &stubSource{delay: 50 * time.Millisecond}
	fetcher := newTestFetcher(source, DefaultWorkers)

	var wg sync.WaitGroup
	results := make([]*models.WageSnapshot, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fetcher.Fetch(context.Background(), 7)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), source.calls.Load())
	for i := 0; i < 10; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, 700, results[i].CurrentWages[0].WageCents)
	}
}

func TestFetchPropagatesSourceError(t *testing.T) {
	source := &stubSource{err: errors.New("provider down")}
	fetcher := newTestFetcher(source, DefaultWorkers)

	snapshot, err := fetcher.Fetch(context.Background(), 7)
	assert.Nil(t, snapshot)
	assert.EqualError(t, err, "provider down")
}

func TestFetchRespectsContextCancellation(t *testing.T) {
	source := &stubSource{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	fetcher := newTestFetcher(source, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fetcher.Fetch(context.Background(), 1)
	}()
	<-source.entered // the single worker slot is now held

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snapshot, err := fetcher.Fetch(ctx, 2)
	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, context.Canceled)

	close(source.release)
	<-done
	assert.Equal(t, int64(1), source.calls.Load())
}

func TestFetchJoinedCallObservesCancellation(t *testing.T) {
	source := &stubSource{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	fetcher := newTestFetcher(source, DefaultWorkers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fetcher.Fetch(context.Background(), 1)
	}()
	<-source.entered // a call for user 1 is now in flight

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snapshot, err := fetcher.Fetch(ctx, 1)
	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, context.Canceled)

	close(source.release)
	<-done
	assert.Equal(t, int64(1), source.calls.Load())
}

func TestPrefetchFetchesEveryUser(t *testing.T) {
	source := &stubSource{}
	fetcher := newTestFetcher(source, 2)

	fetcher.Prefetch(context.Background(), []int{1, 2, 3, 4, 5})
	assert.Equal(t, int64(5), source.calls.Load())
}
