package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/internal/utils"
	"github.com/benmeehan/route-sentinel/pkg/feed"
	"github.com/rs/zerolog"
)

// ExpiryMetrics records reaper sweeps.
type ExpiryMetrics interface {
	ExpirySwept(deleted, failed int, took time.Duration)
}

type nopExpiryMetrics struct{}

func (nopExpiryMetrics) ExpirySwept(int, int, time.Duration) {}

// ExpiryService periodically deletes resolved and expired alerts from the upstream feed.
type ExpiryService struct {
	interval    time.Duration
	resolvedTTL time.Duration
	workers     int

	feed    feed.AlertFeed
	metrics ExpiryMetrics
	logger  zerolog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewExpiryService creates the reaper. metrics may be nil.
func NewExpiryService(interval, resolvedTTL time.Duration, workers int, alertFeed feed.AlertFeed,
	metrics ExpiryMetrics, logger zerolog.Logger) *ExpiryService {
	if metrics == nil {
		metrics = nopExpiryMetrics{}
	}
	return &ExpiryService{
		interval:    interval,
		resolvedTTL: resolvedTTL,
		workers:     workers,
		feed:        alertFeed,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Start sweeps once and then every interval.
func (e *ExpiryService) Start() error {
	if e.ctx != nil {
		e.logger.Warn().Msg("ExpiryService is already running")
		return errors.New("expiry service is already running")
	}

	// Latest only answers once the feed has seen a snapshot.
	if err := e.feed.Subscribe(func([]models.Alert) {}); err != nil {
		e.logger.Warn().Err(err).Msg("Alert feed subscription failed, sweeps are skipped until it recovers")
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runSweepLoop()
	}()

	e.logger.Info().
		Dur("interval", e.interval).
		Dur("resolved_ttl", e.resolvedTTL).
		Int("workers", e.workers).
		Msg("ExpiryService started")
	return nil
}

// Stop cancels the loop and waits for the sweep in progress.
func (e *ExpiryService) Stop() error {
	if e.ctx == nil {
		e.logger.Warn().Msg("ExpiryService is not running")
		return errors.New("expiry service is not running")
	}

	e.cancel()
	e.wg.Wait()

	e.ctx = nil
	e.cancel = nil

	e.logger.Info().Msg("ExpiryService stopped")
	return nil
}

func (e *ExpiryService) runSweepLoop() {
	e.Sweep(e.ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.Sweep(e.ctx)
		case <-e.ctx.Done():
			return
		}
	}
}

// Sweep deletes every qualifying record once and waits for all deletions to finish.
// Failed deletions are logged; the record qualifies again on the next sweep.
func (e *ExpiryService) Sweep(ctx context.Context) (deleted, failed int) {
	started := e.now()

	snapshot, err := e.feed.Latest()
	if err != nil {
		e.logger.Warn().Err(err).Msg("Alert feed unavailable, skipping expiry sweep")
		return 0, 0
	}

	var keys []string
	for _, a := range snapshot {
		if a.Key != "" && Qualifies(a, e.resolvedTTL, started) {
			keys = append(keys, a.Key)
		}
	}
	if len(keys) == 0 {
		e.metrics.ExpirySwept(0, 0, e.now().Sub(started))
		return 0, 0
	}

	pool := utils.NewWorkerPool(e.workers)
	defer pool.Shutdown()

	var deletedCount, failedCount atomic.Int64
	for key := range utils.SliceToSet(keys) {
		err := pool.Submit(ctx, func() {
			if err := e.feed.Delete(ctx, key); err != nil {
				failedCount.Add(1)
				e.logger.Error().Err(err).Str("key", key).Msg("Failed to delete expired alert")
				return
			}
			deletedCount.Add(1)
		})
		if err != nil {
			e.logger.Warn().Err(err).Msg("Expiry sweep interrupted")
			break
		}
	}
	pool.Wait()

	deleted, failed = int(deletedCount.Load()), int(failedCount.Load())
	took := e.now().Sub(started)
	e.metrics.ExpirySwept(deleted, failed, took)
	e.logger.Info().
		Int("deleted", deleted).
		Int("failed", failed).
		Dur("took", took).
		Msg("Expiry sweep finished")
	return deleted, failed
}

// Qualifies reports whether a record is due for deletion: resolved at least ttl ago, or
// past its external expiry.
func Qualifies(a models.Alert, ttl time.Duration, now time.Time) bool {
	if a.ResolvedAt != nil && now.Sub(*a.ResolvedAt) >= ttl {
		return true
	}
	return a.Expired(now)
}
