package storage

import (
	"errors"
	"fmt"
	"time"
)

// ProductRecord is the terminal output for one URL. Exactly one of
// ProductName and Error is set.
type ProductRecord struct {
	URL         string `json:"url"`
	ProductName string `json:"productName,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NamedRecord builds a successful record
func NamedRecord(url, name string) ProductRecord {
	return ProductRecord{URL: url, ProductName: name}
}

// FailedRecord builds a failure record
func FailedRecord(url, reason string) ProductRecord {
	return ProductRecord{URL: url, Error: reason}
}

// Validate checks the name/error exclusivity invariant
func (r ProductRecord) Validate() error {
	if r.URL == "" {
		return errors.New("record has no url")
	}
	if (r.ProductName == "") == (r.Error == "") {
		return fmt.Errorf("record %s must carry exactly one of productName or error", r.URL)
	}
	return nil
}

// Run describes one crawl execution in the archive
type Run struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	SeedCount   int
	RecordCount int
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	RunID             string    `json:"run_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	SeedsDispatched   int       `json:"seeds_dispatched"`
	ListingsFetched   int       `json:"listings_fetched"`
	ListingsFailed    int       `json:"listings_failed"`
	LinksDiscovered   int       `json:"links_discovered"`
	ProductsNamed     int       `json:"products_named"`
	NamesMissing      int       `json:"names_missing"`
	DetailsFailed     int       `json:"details_failed"`
	DurationMs        int64     `json:"duration_ms"`
	TerminationReason string    `json:"termination_reason"`
}
