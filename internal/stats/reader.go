// Package stats implements the read path of the shorturls service: the
// cache-aside snapshot reader and the time-series builder the chart
// renderer consumes.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wikimedia/labs-tools-shorturls/internal/cache"
	"github.com/wikimedia/labs-tools-shorturls/internal/domain"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
	"github.com/wikimedia/labs-tools-shorturls/internal/metrics"
	"github.com/wikimedia/labs-tools-shorturls/internal/snapshot"
)

// Reader serves aggregations cache-first with the snapshot store as the
// authoritative fallback. A nil cache means every read goes to disk.
type Reader struct {
	store *snapshot.Store
	cache cache.Cache
	ttl   time.Duration
	log   logger.Logger
	m     *metrics.Metrics
}

// NewReader creates a Reader. cache may be nil to run uncached.
func NewReader(
	store *snapshot.Store,
	c cache.Cache,
	ttl time.Duration,
	log logger.Logger,
	m *metrics.Metrics,
) *Reader {
	return &Reader{
		store: store,
		cache: c,
		ttl:   ttl,
		log:   log,
		m:     m,
	}
}

// Get returns the aggregation for a snapshot, preferring the cache. A
// missing, corrupt, or unreachable cache degrades to a disk read, never to
// an error; after a disk read the cache is repopulated best-effort.
// Concurrent callers may race on the refill, which is safe: both compute
// the same value from the same artifact, last write wins.
func (r *Reader) Get(ctx context.Context, ref snapshot.Ref) (*domain.Aggregation, error) {
	reachable := false

	if r.cache != nil {
		if agg, ok := r.lookup(ctx, ref, &reachable); ok {
			return agg, nil
		}
	}

	agg, err := r.store.Read(ref)
	if err != nil {
		return nil, err
	}
	r.m.CacheMissesTotal.Inc()

	if reachable {
		r.writeBack(ctx, ref, agg)
	}

	return agg, nil
}

// lookup consults the cache. reachable is set when the backend answered,
// even if the answer was a miss or a corrupt entry.
func (r *Reader) lookup(ctx context.Context, ref snapshot.Ref, reachable *bool) (*domain.Aggregation, bool) {
	key := ref.CacheKey()

	val, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		*reachable = true
		var agg domain.Aggregation
		if jsonErr := json.Unmarshal([]byte(val), &agg); jsonErr == nil {
			r.m.CacheHitsTotal.Inc()
			return &agg, true
		}
		// Corrupt entry reads as a miss; the refill below overwrites it.
		r.log.Warn("Corrupt cache entry, rereading from disk",
			logger.String("key", key),
		)

	case errors.Is(err, cache.ErrMiss):
		*reachable = true

	default:
		// Backend down. Run without caching for this request.
		r.m.CacheErrorsTotal.Inc()
		r.log.Warn("Cache unreachable, falling back to disk",
			logger.String("key", key),
			logger.Error(err),
		)
	}

	return nil, false
}

// writeBack repopulates the cache after a disk read. The caller already
// holds a valid result, so failures are logged and dropped.
func (r *Reader) writeBack(ctx context.Context, ref snapshot.Ref, agg *domain.Aggregation) {
	data, err := json.Marshal(agg)
	if err != nil {
		r.log.Warn("Failed to marshal aggregation for cache",
			logger.String("key", ref.CacheKey()),
			logger.Error(err),
		)
		return
	}

	if err := r.cache.Set(ctx, ref.CacheKey(), string(data), r.ttl); err != nil {
		r.m.CacheErrorsTotal.Inc()
		r.log.Warn("Failed to write back cache entry",
			logger.String("key", ref.CacheKey()),
			logger.Error(err),
		)
	}
}

// Latest returns the most recent snapshot's aggregation.
func (r *Reader) Latest(ctx context.Context) (*domain.Aggregation, error) {
	ref, err := r.store.Latest()
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, ref)
}

// Domain returns one domain's entry from the latest snapshot.
func (r *Reader) Domain(ctx context.Context, name string) (domain.DomainCount, error) {
	agg, err := r.Latest(ctx)
	if err != nil {
		return domain.DomainCount{}, err
	}

	dc, ok := agg.Lookup(name)
	if !ok {
		return domain.DomainCount{}, domain.ErrDomainNotFound
	}
	return dc, nil
}
