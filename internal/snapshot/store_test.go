package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/labs-tools-shorturls/internal/domain"
	"github.com/wikimedia/labs-tools-shorturls/internal/dump"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
	"github.com/wikimedia/labs-tools-shorturls/internal/metrics"
	"github.com/wikimedia/labs-tools-shorturls/internal/snapshot"
)

func newStore(t *testing.T) (*snapshot.Store, string) {
	t.Helper()

	dir := t.TempDir()
	store := snapshot.NewStore(dir, logger.NewNop(), metrics.New(prometheus.NewRegistry()))
	return store, dir
}

func sampleAggregation() *domain.Aggregation {
	return &domain.Aggregation{
		Stats: []domain.DomainCount{
			{Domain: "en.wikipedia.org", Count: 2},
			{Domain: "query.wikidata.org", Count: 1},
		},
		Total: 3,
	}
}

func TestWriteRead_Roundtrip(t *testing.T) {
	store, _ := newStore(t)
	d := dump.Ref{Name: "shorturls-20200523.gz"}

	require.False(t, store.Exists(d))
	require.NoError(t, store.Write(d, sampleAggregation()))
	require.True(t, store.Exists(d))

	refs, err := store.List()
	require.NoError(t, err)
	require.Len(t, refs, 1)

	agg, err := store.Read(refs[0])
	require.NoError(t, err)
	assert.Equal(t, sampleAggregation(), agg)
}

func TestWrite_IsIdempotent(t *testing.T) {
	store, dir := newStore(t)
	d := dump.Ref{Name: "shorturls-20200523.gz"}

	require.NoError(t, store.Write(d, sampleAggregation()))

	path := filepath.Join(dir, "shorturls-20200523.gz.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Rewriting with different content must be a no-op: snapshots are
	// immutable once persisted.
	require.NoError(t, store.Write(d, &domain.Aggregation{Total: 999}))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	store, dir := newStore(t)
	require.NoError(t, store.Write(dump.Ref{Name: "shorturls-20200523.gz"}, sampleAggregation()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shorturls-20200523.gz.json", entries[0].Name())
}

func TestList_AscendingByDate(t *testing.T) {
	store, _ := newStore(t)
	for _, name := range []string{
		"shorturls-20201111.gz",
		"shorturls-20200523.gz",
		"shorturls-20200601.gz",
	} {
		require.NoError(t, store.Write(dump.Ref{Name: name}, sampleAggregation()))
	}

	refs, err := store.List()
	require.NoError(t, err)

	require.Len(t, refs, 3)
	assert.Equal(t, time.Date(2020, 5, 23, 0, 0, 0, 0, time.UTC), refs[0].Date)
	assert.Equal(t, time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), refs[1].Date)
	assert.Equal(t, time.Date(2020, 11, 11, 0, 0, 0, 0, time.UTC), refs[2].Date)
	assert.True(t, refs[0].Date.Before(refs[1].Date))
}

func TestList_BadArtifactNameFails(t *testing.T) {
	store, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{}"), 0o644))

	_, err := store.List()
	assert.Error(t, err)
}

func TestLatest(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Write(dump.Ref{Name: "shorturls-20200523.gz"}, sampleAggregation()))
	require.NoError(t, store.Write(dump.Ref{Name: "shorturls-20200601.gz"}, sampleAggregation()))

	ref, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, "shorturls-20200601.gz.json", ref.Name)
}

func TestLatest_NoSnapshots(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Latest()
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestRead_Missing(t *testing.T) {
	store, dir := newStore(t)

	_, err := store.Read(snapshot.Ref{
		Path: filepath.Join(dir, "shorturls-20200523.gz.json"),
		Name: "shorturls-20200523.gz.json",
	})
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestRead_Corrupt(t *testing.T) {
	store, dir := newStore(t)
	path := filepath.Join(dir, "shorturls-20200523.gz.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := store.Read(snapshot.Ref{Path: path, Name: "shorturls-20200523.gz.json"})

	var corrupt *domain.CorruptDataError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "snapshot", corrupt.Source)
}

func TestCacheKey(t *testing.T) {
	ref := snapshot.Ref{Name: "shorturls-20200523.gz.json"}
	assert.Equal(t, "shorturls:shorturls-20200523.gz.json", ref.CacheKey())
}
