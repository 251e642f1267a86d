package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alvmarrod/product-weaver/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultBufferConcurrentEmit(t *testing.T) {
	buf := NewResultBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := fmt.Sprintf("https://s.example/products/%d", i)
			if i%2 == 0 {
				buf.Emit(storage.NamedRecord(url, fmt.Sprintf("Item %d", i)))
			} else {
				buf.Emit(storage.FailedRecord(url, "No product name found"))
			}
		}(i)
	}
	wg.Wait()

	records := buf.Records()
	require.Len(t, records, 50)
	for _, r := range records {
		require.NoError(t, r.Validate())
	}

	named, failed := buf.GetStats()
	assert.Equal(t, 25, named)
	assert.Equal(t, 25, failed)
}

func TestResultBufferRecordsIsCopy(t *testing.T) {
	buf := NewResultBuffer()
	buf.Emit(storage.NamedRecord("https://s.example/products/a", "A"))

	records := buf.Records()
	records[0].ProductName = "changed"

	assert.Equal(t, "A", buf.Records()[0].ProductName)
}

func TestResultBufferFlush(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewStorage(filepath.Join(dir, "products.db"))
	require.NoError(t, err)
	defer store.Close()

	runID := uuid.NewString()
	require.NoError(t, store.StartRun(runID, time.Now()))

	buf := NewResultBuffer()
	buf.Emit(storage.NamedRecord("https://s.example/products/a", "Oak Table"))
	buf.Emit(storage.FailedRecord("https://s.example/products/b", "No product name found"))

	output := filepath.Join(dir, "out", "products.json")
	require.NoError(t, buf.Flush(output, store, runID))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var written []storage.ProductRecord
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, buf.Records(), written)

	archived, err := store.LoadRecords(runID)
	require.NoError(t, err)
	assert.Equal(t, buf.Records(), archived)
}

func TestResultBufferFlushWithoutStore(t *testing.T) {
	buf := NewResultBuffer()
	output := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, buf.Flush(output, nil, ""))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}
