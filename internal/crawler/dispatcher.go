package crawler

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Fetcher performs a single fetch and reports its outcome. Failures are
// returned in the Outcome, never as a panic or error return.
type Fetcher interface {
	Fetch(req FetchRequest) Outcome
}

// DispatcherOptions configures the colly-backed fetcher
type DispatcherOptions struct {
	ObeyRobots  bool
	Timeout     time.Duration
	UserAgent   string
	Parallelism int
}

// Dispatcher fetches pages through a shared colly collector. Each fetch
// runs on a clone so callbacks stay local to the request.
type Dispatcher struct {
	base *colly.Collector
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)

	c.IgnoreRobotsTxt = !opts.ObeyRobots
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}

	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	if opts.Parallelism > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: opts.Parallelism,
		}); err != nil {
			logrus.Warnf("Failed to set fetch limit rule: %v", err)
		}
	}

	return &Dispatcher{base: c}
}

// Fetch issues one GET for req.URL and returns the outcome
func (d *Dispatcher) Fetch(req FetchRequest) Outcome {
	if err := validateURL(req.URL); err != nil {
		return failedOutcome(req, KindInvalidURL, 0, err)
	}

	collector := d.base.Clone()

	var (
		body     []byte
		finalURL string
		status   int
	)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		finalURL = r.Request.URL.String()
		body = append([]byte(nil), r.Body...)
	})

	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := collector.Visit(req.URL); err != nil {
		return failedOutcome(req, classifyError(err), status, err)
	}

	if status < 200 || status > 299 {
		return failedOutcome(req, KindHTTPStatus, status,
			fmt.Errorf("%d %s", status, http.StatusText(status)))
	}

	if finalURL == "" {
		finalURL = req.URL
	}

	return Outcome{
		Request:    req,
		Body:       body,
		FinalURL:   finalURL,
		StatusCode: status,
	}
}

// validateURL requires an absolute http(s) URL
func validateURL(raw string) error {
	if raw == "" {
		return colly.ErrMissingURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

func failedOutcome(req FetchRequest, kind FailureKind, status int, err error) Outcome {
	return Outcome{
		Request:    req,
		StatusCode: status,
		Err: &FetchError{
			Kind:       kind,
			URL:        req.URL,
			StatusCode: status,
			Err:        err,
		},
	}
}
