package stats

import (
	"context"

	"github.com/wikimedia/labs-tools-shorturls/internal/domain"
	"github.com/wikimedia/labs-tools-shorturls/internal/snapshot"
)

// Series holds the chartable point sequences for all snapshots. Total
// always has one point per snapshot; Domain only has points for days the
// requested domain appeared, so it may be sparser than Total. The renderer
// owns axis scaling and colors.
type Series struct {
	Total  []domain.TimeSeriesPoint `json:"total"`
	Domain []domain.TimeSeriesPoint `json:"domain,omitempty"`
}

// Builder reconstructs time series across all snapshots in date order.
type Builder struct {
	store  *snapshot.Store
	reader *Reader
}

// NewBuilder creates a Builder over the given store and reader.
func NewBuilder(store *snapshot.Store, reader *Reader) *Builder {
	return &Builder{store: store, reader: reader}
}

// Series walks every snapshot in ascending date order and extracts
// (date, total) points, plus (date, count) points for domainName when it is
// non-empty and present in that day's snapshot. Days where the domain is
// absent contribute no domain point rather than a zero; gaps are the
// caller's signal that the domain had no short URLs yet.
func (b *Builder) Series(ctx context.Context, domainName string) (*Series, error) {
	refs, err := b.store.List()
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		// Without at least one snapshot there is no chart axis to anchor.
		return nil, domain.ErrNoData
	}

	series := &Series{
		Total: make([]domain.TimeSeriesPoint, 0, len(refs)),
	}

	for _, ref := range refs {
		agg, err := b.reader.Get(ctx, ref)
		if err != nil {
			return nil, err
		}

		series.Total = append(series.Total, domain.TimeSeriesPoint{
			Date:  ref.Date,
			Value: float64(agg.Total),
		})

		if domainName == "" {
			continue
		}
		if dc, ok := agg.Lookup(domainName); ok {
			series.Domain = append(series.Domain, domain.TimeSeriesPoint{
				Date:  ref.Date,
				Value: float64(dc.Count),
			})
		}
	}

	return series, nil
}
