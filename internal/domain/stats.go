// Package domain defines the data model shared by the extract job and the
// stats server: per-domain counts, dated aggregations, and time-series points.
package domain

import "time"

// DomainCount is the number of short URLs pointing at a single host.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Aggregation is one day's domain-frequency breakdown. Stats is sorted by
// count descending; Total is the sum of all counts, which excludes lines the
// aggregator skipped as malformed.
//
// This is also the on-disk snapshot shape and the cached value shape.
type Aggregation struct {
	Stats []DomainCount `json:"stats"`
	Total int           `json:"total"`
}

// Lookup returns the count entry for a domain, or false if the domain does
// not appear in this aggregation.
func (a *Aggregation) Lookup(domain string) (DomainCount, bool) {
	for _, dc := range a.Stats {
		if dc.Domain == domain {
			return dc, true
		}
	}
	return DomainCount{}, false
}

// TimeSeriesPoint is a single (date, value) sample for charting.
type TimeSeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
