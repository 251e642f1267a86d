package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/alvmarrod/product-weaver/internal/storage"
	"github.com/sirupsen/logrus"
)

// ResultBuffer collects product records in memory until the run ends.
// Emit is safe for concurrent use; records keep arrival order.
type ResultBuffer struct {
	records []storage.ProductRecord
	named   int
	failed  int
	mu      sync.RWMutex
}

// NewResultBuffer creates an empty buffer
func NewResultBuffer() *ResultBuffer {
	return &ResultBuffer{
		records: make([]storage.ProductRecord, 0),
	}
}

// Emit appends a record
func (b *ResultBuffer) Emit(record storage.ProductRecord) {
	if err := record.Validate(); err != nil {
		logrus.Errorf("Buffering malformed record: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, record)
	if record.ProductName != "" {
		b.named++
	} else {
		b.failed++
	}
}

// Records returns a copy of the buffered records
func (b *ResultBuffer) Records() []storage.ProductRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]storage.ProductRecord, len(b.records))
	copy(out, b.records)
	return out
}

// GetStats returns the number of named and failed records
func (b *ResultBuffer) GetStats() (named, failed int) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.named, b.failed
}

// Flush writes all buffered records to the JSON output and, when store is
// non-nil, archives them under runID. The JSON output is written even if
// archiving fails.
func (b *ResultBuffer) Flush(outputPath string, store *storage.Storage, runID string) error {
	records := b.Records()

	startTime := time.Now()
	logrus.Infof("Flushing %d records...", len(records))

	var firstErr error

	if err := storage.WriteJSON(outputPath, records); err != nil {
		firstErr = fmt.Errorf("failed to write %s: %w", outputPath, err)
		logrus.Errorf("Failed to write output: %v", err)
	} else {
		logrus.Infof("Records written to %s", outputPath)
	}

	if store != nil {
		if err := store.SaveRecords(runID, records); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logrus.Errorf("Failed to archive records: %v", err)
		} else {
			logrus.Infof("Records archived for run %s", runID)
		}
	}

	logrus.Infof("Flush completed in %v", time.Since(startTime))
	return firstErr
}
