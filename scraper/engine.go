// scraper/engine.go
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/metrics"
	"github.com/gewnthar/projectscraper/models"
)

var (
	// ErrNoUsableData means the page was fetched but yielded no project name,
	// even after metadata backfill.
	ErrNoUsableData = errors.New("no usable data extracted")
	// ErrParse means the response body could not be parsed as HTML.
	ErrParse = errors.New("parse html")
)

// Attempt outcomes, used as metric labels.
const (
	outcomeSuccess   = "success"
	outcomeRetryable = "retryable_error"
	outcomeFatal     = "fatal_error"
)

// attemptState is the per-site retry state machine.
type attemptState int

const (
	stateAttempting attemptState = iota
	stateSucceeded
	stateExhausted
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the wait after a failed attempt: 2^attempt seconds,
// attempt counted from 0, no jitter.
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// EngineConfig bounds the engine's retry and concurrency behaviour.
type EngineConfig struct {
	MaxRetries  int // total attempts per site
	Concurrency int // sites fetched at once
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(e *Engine) { e.sleep = fn }
}

// WithClock replaces the extraction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics records attempt outcomes and record statuses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine fetches every configured site and turns each into exactly one RawRecord.
type Engine struct {
	fetcher     Fetcher
	maxRetries  int
	concurrency int
	sleep       SleepFunc
	now         func() time.Time
	metrics     *metrics.Metrics
	log         logger.Logger
}

// NewEngine wires an engine around fetcher.
func NewEngine(fetcher Fetcher, cfg EngineConfig, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		maxRetries:  max(cfg.MaxRetries, 1),
		concurrency: max(cfg.Concurrency, 1),
		sleep:       contextSleep,
		now:         time.Now,
		log:         log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Collect processes sites and returns their records in registry order.
// Sites without a usable URL are skipped with a warning; every other site
// yields a record, live or fallback.
func (e *Engine) Collect(ctx context.Context, sites []models.SiteDescriptor) []models.RawRecord {
	valid := make([]models.SiteDescriptor, 0, len(sites))
	for i, site := range sites {
		if err := ValidateSiteURL(site.URL); err != nil {
			e.log.Warn("Skipping site with invalid URL",
				logger.Int("index", i), logger.String("site", site.Label()), logger.Error(err))
			continue
		}
		valid = append(valid, site)
	}

	records := make([]models.RawRecord, len(valid))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, site := range valid {
		g.Go(func() error {
			records[i] = e.collectSite(ctx, site)
			return nil
		})
	}
	_ = g.Wait()
	return records
}

// ValidateSiteURL accepts absolute http(s) URLs with a host.
func ValidateSiteURL(raw string) error {
	if raw == "" {
		return errors.New("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}

// collectSite drives one site through Attempting(n) until Succeeded or Exhausted.
func (e *Engine) collectSite(ctx context.Context, site models.SiteDescriptor) models.RawRecord {
	log := e.log.With(logger.String("site", site.Label()), logger.String("url", site.URL))
	log.Info("Fetching site")

	var (
		record  models.RawRecord
		lastErr error
		state   = stateAttempting
	)
	for attempt := 0; state == stateAttempting; attempt++ {
		rec, err := e.attempt(ctx, site)
		if err == nil {
			e.metrics.ObserveAttempt(outcomeSuccess)
			record, state = rec, stateSucceeded
			log.Info("Collected live data",
				logger.String("method", string(rec.Method)),
				logger.Int("attempts", attempt+1),
				logger.Strings("fallback_fields", rec.FallbackFields))
			break
		}

		lastErr = err
		retryable := IsRetryable(err)
		log.Warn("Attempt failed",
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", e.maxRetries),
			logger.Bool("retryable", retryable),
			logger.Error(err))

		if !retryable || attempt+1 >= e.maxRetries {
			e.metrics.ObserveAttempt(outcomeFatal)
			state = stateExhausted
			break
		}
		e.metrics.ObserveAttempt(outcomeRetryable)

		if err := e.sleep(ctx, Backoff(attempt)); err != nil {
			lastErr = fmt.Errorf("backoff interrupted: %w", err)
			state = stateExhausted
		}
	}

	if state == stateExhausted {
		log.Error("Using metadata fallback", logger.Error(lastErr))
		record = e.fallbackRecord(site)
	}
	e.metrics.ObserveRecord(string(record.Status))
	return record
}

// attempt runs a single fetch-parse-extract pass.
func (e *Engine) attempt(ctx context.Context, site models.SiteDescriptor) (models.RawRecord, error) {
	body, err := e.fetcher.Fetch(ctx, site.URL)
	if err != nil {
		return models.RawRecord{}, err
	}
	fetchedAt := e.now()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	strategy := StrategyFor(site.URL)
	c := strategy.Extract(doc, site.URL, site.Metadata)
	if c.ProjectName == "" {
		return models.RawRecord{}, fmt.Errorf("%w using %s strategy", ErrNoUsableData, strategy.ID())
	}

	return models.RawRecord{
		ProjectName:     c.ProjectName,
		ProjectLocation: c.ProjectLocation,
		ProjectType:     c.ProjectType,
		ContactName:     c.ContactName,
		MobileNumber:    c.MobileNumber,
		SourceURL:       site.URL,
		ExtractionDate:  fetchedAt,
		Status:          models.StatusSuccessLive,
		Method:          strategy.ID(),
		FallbackFields:  c.FallbackFields,
	}, nil
}

// fallbackRecord is built from the descriptor alone. The name falls back to
// the descriptor label so the record survives normalization.
func (e *Engine) fallbackRecord(site models.SiteDescriptor) models.RawRecord {
	name := site.Metadata.Name
	if name == "" {
		name = site.Label()
	}
	return models.RawRecord{
		ProjectName:     name,
		ProjectLocation: site.Metadata.Location,
		ProjectType:     site.Metadata.Type,
		ContactName:     site.Metadata.ContactName,
		MobileNumber:    site.Metadata.MobileNumber,
		SourceURL:       site.URL,
		ExtractionDate:  e.now(),
		Status:          models.StatusFailedMetadataOnly,
		Method:          models.StrategyNone,
	}
}
