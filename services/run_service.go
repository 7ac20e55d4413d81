// services/run_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gewnthar/projectscraper/cleaner"
	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/metrics"
	"github.com/gewnthar/projectscraper/models"
)

// ErrNoSites fails a run whose registry yields no sites.
var ErrNoSites = errors.New("site registry has no sites")

// Pipeline stage names, as logged and reported.
const (
	StageLoadSites = "load_sites"
	StageCollect   = "collect"
	StageNormalize = "normalize"
	StageExport    = "export"
	StageCSV       = "csv"
	StageDatabase  = "database"
	StageEmail     = "email"
)

// SiteLoader reads the site registry.
type SiteLoader func(path string) ([]models.SiteDescriptor, error)

// Collector turns sites into one raw record each.
type Collector interface {
	Collect(ctx context.Context, sites []models.SiteDescriptor) []models.RawRecord
}

// WorkbookExporter persists the history workbook.
type WorkbookExporter interface {
	Export(records []models.NormalizedRecord, runAt time.Time) (string, error)
	WriteFallback(records []models.NormalizedRecord) (string, error)
}

// BatchExporter writes a run's batch to a secondary file.
type BatchExporter interface {
	Export(records []models.NormalizedRecord) (string, error)
}

// RunStore keeps run history.
type RunStore interface {
	SaveRun(ctx context.Context, run models.RunSummary, records []models.NormalizedRecord) error
	LastRun(ctx context.Context) (*models.RunSummary, error)
}

// Notifier mails run results.
type Notifier interface {
	SendReport(ctx context.Context, attachmentPath string) error
	SendErrorReport(ctx context.Context, message, details string) error
}

// Deps wires a RunService. CSV, Store, Notifier and Metrics are optional.
type Deps struct {
	SitesFile string
	LoadSites SiteLoader
	Collector Collector
	Workbook  WorkbookExporter
	CSV       BatchExporter
	Store     RunStore
	Notifier  Notifier
	Metrics   *metrics.Metrics
	Log       logger.Logger
	Now       func() time.Time
}

// RunService executes one fetch, normalize, persist and notify cycle.
type RunService struct {
	deps Deps

	mu   sync.RWMutex
	last *models.RunSummary
}

func NewRunService(deps Deps) *RunService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &RunService{deps: deps}
}

// run carries the state of a single execution.
type run struct {
	summary models.RunSummary
	log     logger.Logger
	now     func() time.Time
}

func (r *run) stage(name string, fn func() error) error {
	start := r.now()
	err := fn()
	outcome := models.StageOutcome{Stage: name, OK: err == nil, Duration: r.now().Sub(start)}
	if err != nil {
		outcome.Error = err.Error()
		r.log.Error("Stage failed", logger.String("stage", name), logger.Duration("duration", outcome.Duration), logger.Error(err))
	} else {
		r.log.Info("Stage completed", logger.String("stage", name), logger.Duration("duration", outcome.Duration))
	}
	r.summary.Stages = append(r.summary.Stages, outcome)
	return err
}

// Run executes the pipeline. Only an empty registry, an invalid batch or a
// failure of both workbook writes fail the run; CSV, database and email
// problems are logged.
func (s *RunService) Run(ctx context.Context) (models.RunSummary, error) {
	d := s.deps
	r := &run{
		summary: models.RunSummary{ID: uuid.NewString(), StartedAt: d.Now()},
		now:     d.Now,
	}
	r.log = d.Log.With(logger.String("run_id", r.summary.ID))
	r.log.Info("Starting scrape run", logger.Time("started_at", r.summary.StartedAt))

	var sites []models.SiteDescriptor
	err := r.stage(StageLoadSites, func() error {
		var loadErr error
		sites, loadErr = d.LoadSites(d.SitesFile)
		if loadErr != nil {
			return fmt.Errorf("%w: %v", ErrNoSites, loadErr)
		}
		if len(sites) == 0 {
			return ErrNoSites
		}
		return nil
	})
	r.summary.Sites = len(sites)
	if err != nil {
		s.ensureWorkbook(r)
		return s.fail(ctx, r, nil, err)
	}

	var raw []models.RawRecord
	_ = r.stage(StageCollect, func() error {
		raw = d.Collector.Collect(ctx, sites)
		return nil
	})

	var records []models.NormalizedRecord
	err = r.stage(StageNormalize, func() error {
		records = cleaner.Normalize(raw)
		return cleaner.Validate(records, r.log)
	})
	r.tally(records)
	if err != nil {
		s.ensureWorkbook(r)
		return s.fail(ctx, r, records, err)
	}

	err = r.stage(StageExport, func() error {
		path, exportErr := d.Workbook.Export(records, r.summary.StartedAt)
		if exportErr == nil {
			r.summary.OutputFile = path
			return nil
		}
		r.log.Error("Workbook export failed, writing fallback", logger.Error(exportErr))
		path, fallbackErr := d.Workbook.WriteFallback(records)
		if fallbackErr != nil {
			return fmt.Errorf("export failed: %w; fallback failed: %w", exportErr, fallbackErr)
		}
		r.summary.OutputFile = path
		return nil
	})
	if err != nil {
		return s.fail(ctx, r, records, err)
	}

	if d.CSV != nil {
		_ = r.stage(StageCSV, func() error {
			_, csvErr := d.CSV.Export(records)
			return csvErr
		})
	}

	if d.Notifier != nil {
		_ = r.stage(StageEmail, func() error {
			return d.Notifier.SendReport(ctx, r.summary.OutputFile)
		})
	}

	return s.finish(ctx, r, records, nil)
}

// ensureWorkbook makes sure a header-only workbook exists after a run that
// produced nothing; an existing workbook is not touched.
func (s *RunService) ensureWorkbook(r *run) {
	path, err := s.deps.Workbook.Export(nil, r.summary.StartedAt)
	if err != nil {
		r.log.Error("Failed to create empty workbook", logger.Error(err))
		return
	}
	r.summary.OutputFile = path
}

func (r *run) tally(records []models.NormalizedRecord) {
	r.summary.Records = len(records)
	r.summary.LiveRecords, r.summary.FallbackRecords = 0, 0
	for _, rec := range records {
		if rec.Status == models.StatusSuccessLive {
			r.summary.LiveRecords++
		} else {
			r.summary.FallbackRecords++
		}
	}
	r.summary.AverageQuality = cleaner.AverageScore(records)
}

func (s *RunService) fail(ctx context.Context, r *run, records []models.NormalizedRecord, runErr error) (models.RunSummary, error) {
	if s.deps.Notifier != nil {
		details := fmt.Sprintf("Run %s started at %s", r.summary.ID, r.summary.StartedAt.Format(models.DateLayout))
		if err := s.deps.Notifier.SendErrorReport(ctx, runErr.Error(), details); err != nil {
			r.log.Warn("Failed to send error report", logger.Error(err))
		}
	}
	return s.finish(ctx, r, records, runErr)
}

func (s *RunService) finish(ctx context.Context, r *run, records []models.NormalizedRecord, runErr error) (models.RunSummary, error) {
	r.summary.FinishedAt = r.now()
	r.summary.Result = models.RunSuccess
	if runErr != nil {
		r.summary.Result = models.RunFailure
		r.summary.ErrorMessage = runErr.Error()
	}

	if s.deps.Store != nil {
		_ = r.stage(StageDatabase, func() error {
			return s.deps.Store.SaveRun(ctx, r.summary, records)
		})
	}

	s.deps.Metrics.ObserveRun(r.summary.Result, r.summary.Duration(), r.summary.Records, r.summary.AverageQuality)

	s.mu.Lock()
	last := r.summary
	s.last = &last
	s.mu.Unlock()

	fields := []logger.Field{
		logger.String("result", r.summary.Result),
		logger.Duration("duration", r.summary.Duration()),
		logger.Int("sites", r.summary.Sites),
		logger.Int("records", r.summary.Records),
		logger.Int("live_records", r.summary.LiveRecords),
		logger.Int("fallback_records", r.summary.FallbackRecords),
		logger.Float64("average_quality", r.summary.AverageQuality),
		logger.String("output_file", r.summary.OutputFile),
	}
	if runErr != nil {
		r.log.Error("Scrape run failed", append(fields, logger.Error(runErr))...)
	} else {
		r.log.Info("Scrape run completed", fields...)
	}
	return r.summary, runErr
}

// LastRun returns the most recent run of this process, falling back to the
// store for runs of earlier processes. It returns nil when there is none.
func (s *RunService) LastRun(ctx context.Context) (*models.RunSummary, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		cp := *last
		return &cp, nil
	}
	if s.deps.Store == nil {
		return nil, nil
	}
	return s.deps.Store.LastRun(ctx)
}
