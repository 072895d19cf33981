// Package dump locates raw shorturl dumps and aggregates them into
// per-domain counts. Dumps are gzip-compressed text files of
// "<id>|<url>" lines, one file per day, published externally.
package dump

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// dumpExtension filters directory entries down to raw dumps.
const dumpExtension = ".gz"

// Ref identifies one raw dump file. Name embeds a zero-padded date
// (shorturls-YYYYMMDD.gz), so lexicographic order equals chronological order.
type Ref struct {
	Path string
	Name string
}

// Locator lists the available raw dumps.
type Locator struct {
	dir string
}

// NewLocator creates a Locator for the given dump directory.
func NewLocator(dir string) *Locator {
	return &Locator{dir: dir}
}

// List returns all dumps in the directory in ascending date order.
// Non-dump entries are excluded by extension.
func (l *Locator) List() ([]Ref, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read dump directory %s: %w", l.dir, err)
	}

	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != dumpExtension {
			continue
		}
		refs = append(refs, Ref{
			Path: filepath.Join(l.dir, entry.Name()),
			Name: entry.Name(),
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Name < refs[j].Name
	})

	return refs, nil
}
