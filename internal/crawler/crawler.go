package crawler

import (
	"fmt"
	"sync"

	"github.com/alvmarrod/product-weaver/internal/config"
	"github.com/alvmarrod/product-weaver/internal/storage"
	"github.com/sirupsen/logrus"
)

// Sink receives product records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Emit(record storage.ProductRecord)
}

// SeedLoader produces the ordered list of listing URLs to start from
type SeedLoader interface {
	Load() ([]string, error)
}

// Event identifies a countable crawl occurrence reported to the metrics callback
type Event int

const (
	EventSeedDispatched Event = iota
	EventListingFetched
	EventListingFailed
	EventLinkDiscovered
	EventProductNamed
	EventNameMissing
	EventDetailFailed
)

// Crawler orchestrates the two-stage crawl: listing pages are fetched to
// discover product links, and each link is fetched once to extract a name.
type Crawler struct {
	cfg             *config.Config
	fetcher         Fetcher
	filter          *LinkFilter
	sink            Sink
	queue           *Queue
	pending         sync.WaitGroup
	workers         sync.WaitGroup
	inFlightMu      sync.Mutex
	inFlight        int
	metricsCallback func(Event)
}

// NewCrawler creates a new crawler instance
func NewCrawler(cfg *config.Config, fetcher Fetcher, sink Sink, metricsCallback func(Event)) *Crawler {
	return &Crawler{
		cfg:             cfg,
		fetcher:         fetcher,
		filter:          NewLinkFilter(cfg.ProductPattern()),
		sink:            sink,
		queue:           NewQueue(),
		metricsCallback: metricsCallback,
	}
}

// Run loads the seeds and crawls them until every request has produced
// its records. A seed loading failure is logged once and returned; no
// records are emitted in that case. A Crawler runs once.
func (c *Crawler) Run(loader SeedLoader) error {
	seeds, err := loader.Load()
	if err != nil {
		logrus.Errorf("Failed to load seeds: %v", err)
		return err
	}

	if len(seeds) == 0 {
		logrus.Warn("Seed source contains no URLs, nothing to crawl")
		return nil
	}

	logrus.Infof("Loaded %d seed URLs", len(seeds))

	c.start()

	for _, seed := range seeds {
		c.dispatch(FetchRequest{URL: seed, Stage: StageListing, Seed: seed})
		c.notify(EventSeedDispatched)
	}

	// Detail requests are dispatched before their listing is marked done,
	// so pending only reaches zero once the whole link graph is resolved.
	c.pending.Wait()
	c.stop()

	logrus.Info("All requests resolved")
	return nil
}

// Progress returns the number of queued and in-flight requests
func (c *Crawler) Progress() (queued, inFlight int) {
	return c.queue.Size(), c.getInFlight()
}

// start launches the crawler workers
func (c *Crawler) start() {
	logrus.Infof("Starting %d crawler workers", c.cfg.ConcurrentWorkers)
	for i := 0; i < c.cfg.ConcurrentWorkers; i++ {
		c.workers.Add(1)
		go c.worker(i + 1)
	}
}

// stop shuts the queue and waits for workers to exit
func (c *Crawler) stop() {
	c.queue.Stop()
	c.workers.Wait()
	logrus.Debug("All workers stopped")
}

// dispatch schedules a fetch
func (c *Crawler) dispatch(req FetchRequest) {
	c.pending.Add(1)
	if !c.queue.Push(req) {
		c.pending.Done()
		logrus.Warnf("Queue stopped, dropping %s request for %s", req.Stage, req.URL)
	}
}

// worker fetches queued requests until the queue is stopped
func (c *Crawler) worker(id int) {
	defer c.workers.Done()

	logrus.Debugf("Worker %d started", id)

	for {
		req, ok := c.queue.Pop()
		if !ok {
			logrus.Debugf("Worker %d: queue stopped, exiting", id)
			return
		}

		c.incrementInFlight()
		logrus.Debugf("Worker %d: fetching %s (%s)", id, req.URL, req.Stage)
		c.handle(c.fetcher.Fetch(req))
		c.decrementInFlight()
		c.pending.Done()
	}
}

// handle routes an outcome to the handler registered for its stage
func (c *Crawler) handle(outcome Outcome) {
	req := outcome.Request

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Handler panic for %s: %v", req.URL, r)
			c.sink.Emit(storage.FailedRecord(req.URL, fmt.Sprintf("internal error: %v", r)))
		}
	}()

	if !outcome.OK() {
		record := Classify(outcome.Err, req.URL)
		logrus.Warnf("Failed to fetch %s page %s: %s", req.Stage, req.URL, record.Error)
		c.sink.Emit(record)
		if req.Stage == StageListing {
			c.notify(EventListingFailed)
		} else {
			c.notify(EventDetailFailed)
		}
		return
	}

	switch req.Stage {
	case StageListing:
		c.notify(EventListingFetched)
		c.handleListing(outcome)
	case StageDetail:
		c.handleDetail(outcome)
	default:
		logrus.Errorf("Unknown stage %s for %s", req.Stage, req.URL)
		c.sink.Emit(storage.FailedRecord(req.URL, fmt.Sprintf("unknown stage %s", req.Stage)))
	}
}

func (c *Crawler) handleListing(outcome Outcome) {
	found := 0
	for link := range c.filter.Filter(outcome.Body, outcome.FinalURL) {
		found++
		c.notify(EventLinkDiscovered)
		c.dispatch(FetchRequest{URL: link.URL, Stage: StageDetail, Seed: outcome.Request.URL})
	}

	if found == 0 {
		logrus.Infof("Listing %s has no product links", outcome.Request.URL)
		return
	}
	logrus.Infof("Listing %s: %d product links", outcome.Request.URL, found)
}

func (c *Crawler) handleDetail(outcome Outcome) {
	record := Extract(outcome.Body, outcome.FinalURL)
	c.sink.Emit(record)

	if record.Error != "" {
		logrus.Infof("No product name on %s", record.URL)
		c.notify(EventNameMissing)
		return
	}
	logrus.Debugf("Product %q at %s", record.ProductName, record.URL)
	c.notify(EventProductNamed)
}

func (c *Crawler) notify(event Event) {
	if c.metricsCallback != nil {
		c.metricsCallback(event)
	}
}

// Helper methods for in-flight request tracking
func (c *Crawler) incrementInFlight() {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()
	c.inFlight++
}

func (c *Crawler) decrementInFlight() {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()
	c.inFlight--
}

func (c *Crawler) getInFlight() int {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()
	return c.inFlight
}
