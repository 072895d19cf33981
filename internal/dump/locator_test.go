package dump_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/labs-tools-shorturls/internal/dump"
)

func TestList_OrdersByNameAndFiltersExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"shorturls-20200601.gz",
		"shorturls-20200523.gz",
		"shorturls-20201111.gz",
		"README.txt",
		"shorturls-20200523.gz.json",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.gz"), 0o755))

	refs, err := dump.NewLocator(dir).List()
	require.NoError(t, err)

	require.Len(t, refs, 3)
	assert.Equal(t, "shorturls-20200523.gz", refs[0].Name)
	assert.Equal(t, "shorturls-20200601.gz", refs[1].Name)
	assert.Equal(t, "shorturls-20201111.gz", refs[2].Name)
	assert.Equal(t, filepath.Join(dir, "shorturls-20200523.gz"), refs[0].Path)
}

func TestList_UnreadableDirectoryFails(t *testing.T) {
	_, err := dump.NewLocator(filepath.Join(t.TempDir(), "missing")).List()
	assert.Error(t, err)
}

func TestList_EmptyDirectory(t *testing.T) {
	refs, err := dump.NewLocator(t.TempDir()).List()
	require.NoError(t, err)
	assert.Empty(t, refs)
}
