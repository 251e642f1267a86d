package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alvmarrod/product-weaver/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCounts(t *testing.T) {
	tracker := NewTracker("run-1")
	tracker.IncrementSeedsDispatched()
	tracker.IncrementListingsFetched()
	tracker.IncrementLinksDiscovered()
	tracker.IncrementLinksDiscovered()
	tracker.IncrementProductsNamed()
	tracker.IncrementNamesMissing()

	snap := tracker.GetSnapshot()
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, 1, snap.SeedsDispatched)
	assert.Equal(t, 2, snap.LinksDiscovered)
	assert.Equal(t, 1, snap.ProductsNamed)
	assert.Equal(t, 1, snap.NamesMissing)
	assert.Equal(t, 0, snap.DetailsFailed)

	assert.Contains(t, tracker.LogProgress(), "Links: 2")
}

func TestTrackerPrometheusCollectors(t *testing.T) {
	tracker := NewTracker("run-2")
	tracker.IncrementListingsFailed()
	tracker.IncrementDetailsFailed()
	tracker.IncrementDetailsFailed()

	expected := `
# HELP product_crawler_details_failed_total Product pages that failed to fetch.
# TYPE product_crawler_details_failed_total counter
product_crawler_details_failed_total{run_id="run-2"} 2
# HELP product_crawler_listings_failed_total Listing pages that failed to fetch.
# TYPE product_crawler_listings_failed_total counter
product_crawler_listings_failed_total{run_id="run-2"} 1
`
	require.NoError(t, testutil.GatherAndCompare(tracker.registry, strings.NewReader(expected),
		"product_crawler_details_failed_total", "product_crawler_listings_failed_total"))
	count, err := testutil.GatherAndCount(tracker.registry)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestTrackerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	tracker := NewTracker("run-3")
	tracker.IncrementProductsNamed()
	tracker.Finish("completed")

	jsonPath := filepath.Join(dir, "metrics.json")
	require.NoError(t, tracker.WriteToFile(jsonPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var written storage.Metrics
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, "completed", written.TerminationReason)
	assert.Equal(t, 1, written.ProductsNamed)
	assert.False(t, written.EndTime.IsZero())

	promPath := filepath.Join(dir, "crawler.prom")
	require.NoError(t, tracker.WriteTextfile(promPath))
	prom, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `product_crawler_products_named_total{run_id="run-3"} 1`)
}
