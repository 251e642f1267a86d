package main

import (
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/product-weaver/internal/config"
	"github.com/alvmarrod/product-weaver/internal/crawler"
	"github.com/alvmarrod/product-weaver/internal/memory"
	"github.com/alvmarrod/product-weaver/internal/metrics"
	"github.com/alvmarrod/product-weaver/internal/seed"
	"github.com/alvmarrod/product-weaver/internal/storage"
	"github.com/alvmarrod/product-weaver/internal/version"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const configPath = "config.json"

func main() {
	os.Exit(run())
}

func run() int {
	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Product Weaver v%s starting...", version.Version)

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Infof("No %s found, using defaults", configPath)
		cfg = config.Default()
	} else if err != nil {
		logrus.Errorf("Failed to load config: %v", err)
		return 1
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	logrus.Infof("Configuration loaded: seeds=%s, output=%s, pattern=%s, workers=%d, obey_robots=%t",
		cfg.SeedPath, cfg.OutputPath, cfg.ProductPathPattern, cfg.ConcurrentWorkers, cfg.ObeyRobots)

	runID := uuid.NewString()

	// Initialize storage
	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		logrus.Errorf("Failed to initialize storage: %v", err)
		return 1
	}
	defer store.Close()

	if err := store.StartRun(runID, time.Now()); err != nil {
		logrus.Errorf("Failed to register run: %v", err)
		return 1
	}

	logrus.Infof("Database initialized: %s (run %s)", cfg.DBPath, runID)

	// Initialize metrics tracker
	tracker := metrics.NewTracker(runID)

	// Metrics callback for crawler
	metricsCallback := func(event crawler.Event) {
		switch event {
		case crawler.EventSeedDispatched:
			tracker.IncrementSeedsDispatched()
		case crawler.EventListingFetched:
			tracker.IncrementListingsFetched()
		case crawler.EventListingFailed:
			tracker.IncrementListingsFailed()
		case crawler.EventLinkDiscovered:
			tracker.IncrementLinksDiscovered()
		case crawler.EventProductNamed:
			tracker.IncrementProductsNamed()
		case crawler.EventNameMissing:
			tracker.IncrementNamesMissing()
		case crawler.EventDetailFailed:
			tracker.IncrementDetailsFailed()
		}
	}

	results := memory.NewResultBuffer()

	dispatcher := crawler.NewDispatcher(crawler.DispatcherOptions{
		ObeyRobots:  cfg.ObeyRobots,
		Timeout:     cfg.RequestTimeout(),
		UserAgent:   cfg.UserAgent,
		Parallelism: cfg.ConcurrentWorkers,
	})

	// Initialize crawler
	c := crawler.NewCrawler(cfg, dispatcher, results, metricsCallback)

	// In-flight requests are never aborted. A second signal forces an exit
	// after saving what has been collected so far.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var wg sync.WaitGroup
	crawlDone := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case sig := <-sigChan:
			logrus.Warnf("Received signal %v - waiting for in-flight requests (send again to force exit)", sig)
		case <-crawlDone:
			return
		}

		select {
		case sig := <-sigChan:
			logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
			logrus.Warn("Attempting emergency save...")

			if err := results.Flush(cfg.OutputPath, store, runID); err != nil {
				logrus.Errorf("Emergency flush failed: %v", err)
			}
			tracker.Finish("forced_exit")
			writeMetrics(cfg, tracker)
			os.Exit(1)
		case <-crawlDone:
		}
	}()

	// Start progress logger
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				queued, inFlight := c.Progress()
				logrus.Infof("%s | Queue: %d, in-flight: %d", tracker.LogProgress(), queued, inFlight)
			case <-crawlDone:
				return
			}
		}
	}()

	runErr := c.Run(seed.NewCSVLoader(cfg.SeedPath))
	close(crawlDone)
	wg.Wait()

	if runErr != nil {
		// Seed loading failed: nothing was crawled and no output is written
		tracker.Finish("seed_load_failed")
		writeMetrics(cfg, tracker)
		if err := store.FinishRun(runID, time.Now(), 0, 0); err != nil {
			logrus.Warnf("Failed to close run: %v", err)
		}
		return 1
	}

	logrus.Info("Final stats: " + tracker.LogProgress())

	exitCode := 0
	if err := results.Flush(cfg.OutputPath, store, runID); err != nil {
		exitCode = 1
	}

	tracker.Finish("completed")
	writeMetrics(cfg, tracker)

	snapshot := tracker.GetSnapshot()
	if err := store.FinishRun(runID, time.Now(), snapshot.SeedsDispatched, len(results.Records())); err != nil {
		logrus.Warnf("Failed to close run: %v", err)
	}

	named, failed := results.GetStats()
	logrus.Infof("Done: %d products named, %d records with errors", named, failed)
	return exitCode
}

// writeMetrics saves the run summary and, if configured, the Prometheus textfile
func writeMetrics(cfg *config.Config, tracker *metrics.Tracker) {
	if err := tracker.WriteToFile(cfg.MetricsPath); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	if cfg.MetricsTextfilePath == "" {
		return
	}
	if err := tracker.WriteTextfile(cfg.MetricsTextfilePath); err != nil {
		logrus.Errorf("Failed to write Prometheus textfile: %v", err)
	}
}
