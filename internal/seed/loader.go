// Package seed reads the listing-page URLs a crawl starts from.
package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// LoadError reports an unreadable or malformed seed source
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load seeds from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// CSVLoader reads seed URLs from the first column of a CSV file. A
// leading header row is skipped when its first cell is not a URL.
type CSVLoader struct {
	Path string
}

// NewCSVLoader creates a loader for the CSV file at path
func NewCSVLoader(path string) *CSVLoader {
	return &CSVLoader{Path: path}
}

// Load returns the seed URLs in file order
func (l *CSVLoader) Load() ([]string, error) {
	file, err := os.Open(l.Path)
	if err != nil {
		return nil, &LoadError{Source: l.Path, Err: err}
	}
	defer file.Close()

	seeds, err := Parse(file)
	if err != nil {
		return nil, &LoadError{Source: l.Path, Err: err}
	}
	return seeds, nil
}

// Parse reads seed URLs from CSV content
func Parse(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var seeds []string
	first := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}

		cell := ""
		if len(row) > 0 {
			cell = strings.TrimSpace(strings.TrimPrefix(row[0], "\ufeff"))
		}

		if first {
			first = false
			if !isAbsoluteURL(cell) {
				continue // header
			}
		}

		if cell == "" {
			continue
		}
		seeds = append(seeds, cell)
	}

	return seeds, nil
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
