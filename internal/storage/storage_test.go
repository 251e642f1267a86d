package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRecordValidate(t *testing.T) {
	require.NoError(t, NamedRecord("https://s.example/products/a", "Oak Table").Validate())
	require.NoError(t, FailedRecord("https://s.example/products/a", "timeout").Validate())

	require.Error(t, ProductRecord{URL: "https://s.example/products/a"}.Validate())
	require.Error(t, ProductRecord{URL: "https://s.example/products/a", ProductName: "x", Error: "y"}.Validate())
	require.Error(t, ProductRecord{ProductName: "x"}.Validate())
}

func TestWriteJSONOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products", "products_file.json")

	require.NoError(t, WriteJSON(path, []ProductRecord{
		NamedRecord("https://s.example/products/a", "A"),
		NamedRecord("https://s.example/products/b", "B"),
	}))
	require.NoError(t, WriteJSON(path, []ProductRecord{
		FailedRecord("https://s.example/products/c", "No product name found"),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, map[string]string{
		"url":   "https://s.example/products/c",
		"error": "No product name found",
	}, got[0])
}

func TestWriteJSONEmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestStorageRunLifecycle(t *testing.T) {
	store, err := NewStorage(filepath.Join(t.TempDir(), "products.db"))
	require.NoError(t, err)
	defer store.Close()

	runID := uuid.NewString()
	started := time.Now()
	require.NoError(t, store.StartRun(runID, started))

	records := []ProductRecord{
		NamedRecord("https://s.example/products/a", "Oak Table"),
		FailedRecord("https://s.example/products/b", "http status: 404 Not Found"),
	}
	require.NoError(t, store.SaveRecords(runID, records))
	require.NoError(t, store.FinishRun(runID, started.Add(time.Minute), 1, len(records)))

	loaded, err := store.LoadRecords(runID)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 1, run.SeedCount)
	assert.Equal(t, 2, run.RecordCount)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestStorageUnknownRun(t *testing.T) {
	store, err := NewStorage(filepath.Join(t.TempDir(), "products.db"))
	require.NoError(t, err)
	defer store.Close()

	run, err := store.GetRun("missing")
	require.NoError(t, err)
	assert.Nil(t, run)

	require.Error(t, store.FinishRun("missing", time.Now(), 0, 0))
}
