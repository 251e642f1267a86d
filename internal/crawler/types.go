package crawler

import (
	"fmt"
)

// NoProductNameError is recorded when a detail page has no usable heading
const NoProductNameError = "No product name found"

// Stage tags a fetch with the handler that consumes its outcome
type Stage int

const (
	// StageListing fetches a seed page to discover product links
	StageListing Stage = iota
	// StageDetail fetches a product page to extract its name
	StageDetail
)

func (s Stage) String() string {
	switch s {
	case StageListing:
		return "listing"
	case StageDetail:
		return "detail"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// FetchRequest is a single URL to fetch at a given stage
type FetchRequest struct {
	URL   string
	Stage Stage
	Seed  string // seed URL whose listing produced this request
}

// Outcome is the result of one fetch. Err is nil on success.
type Outcome struct {
	Request    FetchRequest
	Body       []byte
	FinalURL   string
	StatusCode int
	Err        *FetchError
}

// OK reports whether the fetch succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

// FailureKind classifies why a fetch failed
type FailureKind string

const (
	KindInvalidURL        FailureKind = "invalid url"
	KindTimeout           FailureKind = "timeout"
	KindConnectionFailure FailureKind = "connection failure"
	KindHTTPStatus        FailureKind = "http status"
	KindRobotsDisallowed  FailureKind = "robots disallowed"
	KindUnknown           FailureKind = "fetch failed"
)

// FetchError describes a failed fetch
type FetchError struct {
	Kind       FailureKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CandidateLink is a product-detail URL discovered on a listing page
type CandidateLink struct {
	URL string
}
