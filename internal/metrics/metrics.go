package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/product-weaver/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu       sync.Mutex
	data     storage.Metrics
	registry *prometheus.Registry
}

// NewTracker creates a new metrics tracker for a run
func NewTracker(runID string) *Tracker {
	t := &Tracker{
		data: storage.Metrics{
			RunID:     runID,
			StartTime: time.Now(),
		},
		registry: prometheus.NewRegistry(),
	}
	t.registerCollectors()
	return t
}

// registerCollectors exposes the tracker's counters to Prometheus
func (t *Tracker) registerCollectors() {
	labels := prometheus.Labels{"run_id": t.data.RunID}
	counter := func(name, help string, read func(storage.Metrics) int) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "product_crawler",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 {
			return float64(read(t.GetSnapshot()))
		})
	}

	t.registry.MustRegister(
		counter("seeds_dispatched_total", "Seed listing pages dispatched.",
			func(m storage.Metrics) int { return m.SeedsDispatched }),
		counter("listings_fetched_total", "Listing pages fetched successfully.",
			func(m storage.Metrics) int { return m.ListingsFetched }),
		counter("listings_failed_total", "Listing pages that failed to fetch.",
			func(m storage.Metrics) int { return m.ListingsFailed }),
		counter("links_discovered_total", "Product links discovered on listing pages.",
			func(m storage.Metrics) int { return m.LinksDiscovered }),
		counter("products_named_total", "Product pages with an extracted name.",
			func(m storage.Metrics) int { return m.ProductsNamed }),
		counter("names_missing_total", "Product pages without a name heading.",
			func(m storage.Metrics) int { return m.NamesMissing }),
		counter("details_failed_total", "Product pages that failed to fetch.",
			func(m storage.Metrics) int { return m.DetailsFailed }),
	)
}

// IncrementSeedsDispatched increments the dispatched seeds counter
func (t *Tracker) IncrementSeedsDispatched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SeedsDispatched++
}

// IncrementListingsFetched increments the successful listing counter
func (t *Tracker) IncrementListingsFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ListingsFetched++
}

// IncrementListingsFailed increments the failed listing counter
func (t *Tracker) IncrementListingsFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ListingsFailed++
}

// IncrementLinksDiscovered increments the discovered links counter
func (t *Tracker) IncrementLinksDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksDiscovered++
}

// IncrementProductsNamed increments the named products counter
func (t *Tracker) IncrementProductsNamed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ProductsNamed++
}

// IncrementNamesMissing increments the pages-without-name counter
func (t *Tracker) IncrementNamesMissing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NamesMissing++
}

// IncrementDetailsFailed increments the failed detail counter
func (t *Tracker) IncrementDetailsFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.DetailsFailed++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	if snapshot.EndTime.IsZero() {
		snapshot.DurationMs = time.Since(snapshot.StartTime).Milliseconds()
	}
	return snapshot
}

// Finish records the end of the run
func (t *Tracker) Finish(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.DurationMs = t.data.EndTime.Sub(t.data.StartTime).Milliseconds()
	t.data.TerminationReason = reason
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path string) error {
	snapshot := t.GetSnapshot()

	// Marshal to JSON
	jsonData, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// WriteTextfile exports the counters in Prometheus text format, for the
// node_exporter textfile collector
func (t *Tracker) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, t.registry); err != nil {
		return fmt.Errorf("failed to write prometheus textfile: %w", err)
	}
	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Listings: %d fetched, %d failed | Links: %d | Products: %d named, %d missing, %d failed",
		t.data.ListingsFetched,
		t.data.ListingsFailed,
		t.data.LinksDiscovered,
		t.data.ProductsNamed,
		t.data.NamesMissing,
		t.data.DetailsFailed,
	)
}
