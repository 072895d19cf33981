package stats_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/labs-tools-shorturls/internal/cache"
	"github.com/wikimedia/labs-tools-shorturls/internal/domain"
	"github.com/wikimedia/labs-tools-shorturls/internal/dump"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
	"github.com/wikimedia/labs-tools-shorturls/internal/metrics"
	"github.com/wikimedia/labs-tools-shorturls/internal/snapshot"
	"github.com/wikimedia/labs-tools-shorturls/internal/stats"
)

const testTTL = 30 * 24 * time.Hour

// fixture builds a snapshot store with one written snapshot and returns the
// store plus the snapshot's ref.
func fixture(t *testing.T) (*snapshot.Store, snapshot.Ref) {
	t.Helper()

	store := snapshot.NewStore(t.TempDir(), logger.NewNop(), metrics.New(prometheus.NewRegistry()))
	agg := &domain.Aggregation{
		Stats: []domain.DomainCount{
			{Domain: "en.wikipedia.org", Count: 2},
			{Domain: "query.wikidata.org", Count: 1},
		},
		Total: 3,
	}
	require.NoError(t, store.Write(dump.Ref{Name: "shorturls-20200523.gz"}, agg))

	ref, err := store.Latest()
	require.NoError(t, err)
	return store, ref
}

// redisFixture starts a miniredis and returns a Cache over it.
func redisFixture(t *testing.T) (*miniredis.Miniredis, cache.Cache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewRedisCache(client)
}

func newReader(store *snapshot.Store, c cache.Cache) *stats.Reader {
	return stats.NewReader(store, c, testTTL, logger.NewNop(), metrics.New(prometheus.NewRegistry()))
}

func TestGet_ColdCacheReadsDiskAndWarmsCache(t *testing.T) {
	store, ref := fixture(t)
	mr, c := redisFixture(t)
	reader := newReader(store, c)

	agg, err := reader.Get(context.Background(), ref)
	require.NoError(t, err)

	fromDisk, err := store.Read(ref)
	require.NoError(t, err)
	assert.Equal(t, fromDisk, agg)

	// The read warmed the cache with a 30-day expiry.
	cached, err := mr.Get(ref.CacheKey())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"total":3,"stats":[{"domain":"en.wikipedia.org","count":2},{"domain":"query.wikidata.org","count":1}]}`,
		cached)
	assert.Equal(t, testTTL, mr.TTL(ref.CacheKey()))
}

func TestGet_WarmCacheSkipsDisk(t *testing.T) {
	store, ref := fixture(t)
	_, c := redisFixture(t)
	reader := newReader(store, c)

	first, err := reader.Get(context.Background(), ref)
	require.NoError(t, err)

	// Remove the artifact: a second read can only succeed via the cache.
	removeArtifact(t, ref)

	second, err := reader.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGet_CorruptCacheEntryFallsBackToDisk(t *testing.T) {
	store, ref := fixture(t)
	mr, c := redisFixture(t)
	reader := newReader(store, c)

	require.NoError(t, mr.Set(ref.CacheKey(), "{{{ not json"))

	agg, err := reader.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Total)

	// The corrupt entry was overwritten by the refill.
	cached, err := mr.Get(ref.CacheKey())
	require.NoError(t, err)
	assert.NotEqual(t, "{{{ not json", cached)
}

func TestGet_CacheUnreachableFallsBackToDisk(t *testing.T) {
	store, ref := fixture(t)
	mr, c := redisFixture(t)
	reader := newReader(store, c)

	mr.Close()

	agg, err := reader.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Total)
}

func TestGet_NilCacheReadsDisk(t *testing.T) {
	store, ref := fixture(t)
	reader := newReader(store, nil)

	agg, err := reader.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Total)
}

func TestGet_MissingSnapshot(t *testing.T) {
	store, ref := fixture(t)
	_, c := redisFixture(t)
	reader := newReader(store, c)

	removeArtifact(t, ref)

	_, err := reader.Get(context.Background(), ref)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestLatest(t *testing.T) {
	store, _ := fixture(t)
	reader := newReader(store, nil)

	agg, err := reader.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Total)
}

func TestDomain_Found(t *testing.T) {
	store, _ := fixture(t)
	reader := newReader(store, nil)

	dc, err := reader.Domain(context.Background(), "query.wikidata.org")
	require.NoError(t, err)
	assert.Equal(t, domain.DomainCount{Domain: "query.wikidata.org", Count: 1}, dc)
}

func TestDomain_Unknown(t *testing.T) {
	store, _ := fixture(t)
	reader := newReader(store, nil)

	_, err := reader.Domain(context.Background(), "does-not-exist.example")
	assert.ErrorIs(t, err, domain.ErrDomainNotFound)
}

// removeArtifact deletes the snapshot artifact behind a ref.
func removeArtifact(t *testing.T, ref snapshot.Ref) {
	t.Helper()
	require.NoError(t, os.Remove(ref.Path))
}
