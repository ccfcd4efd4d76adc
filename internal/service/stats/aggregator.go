package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/metrics"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/store"
)

const cacheName = "stats"

// Cache stores computed statistics for a short time. Implementations must
// be safe for concurrent use. *redis.Cache satisfies it.
type Cache interface {
	// Get decodes the value under key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores v under key for ttl.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// NoopCache never stores anything.
type NoopCache struct{}

// Get implements Cache.
func (NoopCache) Get(context.Context, string, any) (bool, error) { return false, nil }

// Set implements Cache.
func (NoopCache) Set(context.Context, string, any, time.Duration) error { return nil }

// Config holds Aggregator settings.
type Config struct {
	// Location is the time zone used for day buckets. Nil means UTC.
	Location *time.Location
	// CacheTTL is how long results stay cached. Zero disables caching.
	CacheTTL time.Duration
	// Fallback is recommended to users without history.
	Fallback Recommendation
}

// Aggregator answers statistics queries for one user at a time.
type Aggregator struct {
	generations store.GenerationStore
	downloads   store.DownloadStore
	cache       Cache
	clock       clock.Clock
	config      Config
	logger      *slog.Logger
}

// NewAggregator creates an Aggregator. A nil cache disables caching.
func NewAggregator(
	generations store.GenerationStore,
	downloads store.DownloadStore,
	cache Cache,
	clk clock.Clock,
	config Config,
	logger *slog.Logger,
) *Aggregator {
	if cache == nil || config.CacheTTL <= 0 {
		cache = NoopCache{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		generations: generations,
		downloads:   downloads,
		cache:       cache,
		clock:       clk,
		config:      config,
		logger:      logger.With("component", "stats_aggregator"),
	}
}

// Summary returns the overall statistics of ownerID.
func (a *Aggregator) Summary(ctx context.Context, ownerID uuid.UUID) (*Summary, error) {
	var out Summary
	err := a.cached(ctx, "summary:"+ownerID.String(), &out, func() error {
		jobs, err := a.snapshot(ctx, ownerID)
		if err != nil {
			return err
		}
		downloads, err := a.downloads.CountByOwner(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("%w: count downloads: %w", domain.ErrStorageFailure, err)
		}
		out = Summarize(jobs)
		out.Downloads = downloads
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Daily returns per-day activity of ownerID over the last days days.
// Zero selects DefaultDays; anything outside 1..MaxDays is a validation error.
func (a *Aggregator) Daily(ctx context.Context, ownerID uuid.UUID, days int) ([]DailyActivity, error) {
	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return nil, domain.NewValidationError("days", "must be between 1 and 90", nil)
	}

	var out []DailyActivity
	key := "daily:" + ownerID.String() + ":" + strconv.Itoa(days)
	err := a.cached(ctx, key, &out, func() error {
		jobs, err := a.snapshot(ctx, ownerID)
		if err != nil {
			return err
		}
		out = BucketByDay(jobs, a.clock.Now(), days, a.config.Location)
		return nil
	})
	return out, err
}

// Recommend suggests parameters for the next generation of ownerID.
func (a *Aggregator) Recommend(ctx context.Context, ownerID uuid.UUID) (*Recommendation, error) {
	var out Recommendation
	err := a.cached(ctx, "recommend:"+ownerID.String(), &out, func() error {
		jobs, err := a.snapshot(ctx, ownerID)
		if err != nil {
			return err
		}
		out = Recommend(jobs, a.config.Fallback)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Aggregator) snapshot(ctx context.Context, ownerID uuid.UUID) ([]*domain.GenerationJob, error) {
	jobs, err := a.generations.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.FromContextOrDefault(ctx, a.logger).Error("failed to load generation jobs",
			"error", err,
			"user_id", ownerID)
		return nil, fmt.Errorf("%w: list generations: %w", domain.ErrStorageFailure, err)
	}
	return jobs, nil
}

// cached fills dst from the cache or by running compute, which must write dst.
// Cache failures are logged and never fail the query.
func (a *Aggregator) cached(ctx context.Context, key string, dst any, compute func() error) error {
	log := logger.FromContextOrDefault(ctx, a.logger)

	hit, err := a.cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		metrics.IncCacheRequest(cacheName, "error")
		log.Warn("statistics cache read failed", "error", err, "key", key)
	case hit:
		metrics.IncCacheRequest(cacheName, "hit")
		return nil
	default:
		metrics.IncCacheRequest(cacheName, "miss")
	}

	if err := compute(); err != nil {
		return err
	}
	if err := a.cache.Set(ctx, key, dst, a.config.CacheTTL); err != nil {
		log.Warn("statistics cache write failed", "error", err, "key", key)
	}
	return nil
}
