package dump

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/wikimedia/labs-tools-shorturls/internal/domain"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
	"github.com/wikimedia/labs-tools-shorturls/internal/metrics"
)

// maxLineSize bounds the scanner buffer. Redirect targets are URLs, but
// legacy dumps have carried lines well past bufio's default token size.
const maxLineSize = 1024 * 1024

// Aggregator parses raw dumps into per-domain counts.
type Aggregator struct {
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewAggregator creates an Aggregator with the given dependencies.
func NewAggregator(log logger.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{log: log, metrics: m}
}

// Aggregate streams one dump and returns its domain-frequency breakdown.
// Lines whose URL does not parse or has no host are skipped; the dump is
// expected to contain some malformed legacy data. Memory use is bounded by
// the number of distinct domains, not the number of lines.
func (a *Aggregator) Aggregate(ref Ref) (*domain.Aggregation, error) {
	f, err := os.Open(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("open dump %s: %w", ref.Path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress dump %s: %w", ref.Path, err)
	}
	defer gz.Close()

	counts := make(map[string]int)
	// Insertion order breaks count ties, keeping results deterministic
	// across runs over the same dump.
	order := make(map[string]int)
	var lines, skipped int

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)
	for scanner.Scan() {
		lines++
		host, ok := extractHost(scanner.Text())
		if !ok {
			skipped++
			continue
		}
		if _, seen := counts[host]; !seen {
			order[host] = len(order)
		}
		counts[host]++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dump %s: %w", ref.Path, err)
	}

	a.metrics.DumpLinesTotal.Add(float64(lines))
	a.metrics.DumpLinesSkipped.Add(float64(skipped))
	a.metrics.DumpsProcessed.Inc()

	if skipped > 0 {
		a.log.Debug("Skipped malformed dump lines",
			logger.String("dump", ref.Name),
			logger.Int("skipped", skipped),
			logger.Int("lines", lines),
		)
	}

	return buildAggregation(counts, order), nil
}

// extractHost classifies one dump line, returning the redirect target's
// host. The line format is "<id>|<url>"; only the first separator splits,
// since the URL itself may contain "|". Lines that fail URL parsing or lack
// a host component are classified invalid, never errors.
func extractHost(line string) (string, bool) {
	_, rawURL, found := strings.Cut(line, "|")
	if !found {
		return "", false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := parsed.Hostname()
	if host == "" {
		return "", false
	}

	return strings.ToLower(host), true
}

// buildAggregation sorts the counts descending and computes the total as
// the sum of final per-domain counts, so skipped lines never contribute.
func buildAggregation(counts map[string]int, order map[string]int) *domain.Aggregation {
	stats := make([]domain.DomainCount, 0, len(counts))
	for host, count := range counts {
		stats = append(stats, domain.DomainCount{Domain: host, Count: count})
	}

	sortStats(stats, order)

	total := 0
	for _, dc := range stats {
		total += dc.Count
	}

	return &domain.Aggregation{Stats: stats, Total: total}
}

// sortStats orders by count descending, ties broken by first appearance in
// the dump.
func sortStats(stats []domain.DomainCount, order map[string]int) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return order[stats[i].Domain] < order[stats[j].Domain]
	})
}
