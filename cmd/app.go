// cmd/app.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gewnthar/projectscraper/config"
	"github.com/gewnthar/projectscraper/database"
	"github.com/gewnthar/projectscraper/export"
	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/metrics"
	"github.com/gewnthar/projectscraper/notify"
	"github.com/gewnthar/projectscraper/scraper"
	"github.com/gewnthar/projectscraper/services"
)

// app holds everything a run or the daemon needs.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	registry *prometheus.Registry
	db       *sqlx.DB
	mailer   *notify.Mailer
	runs     *services.RunService
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, File: cfg.Logging.File})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a := &app{cfg: cfg, log: log, registry: reg, mailer: notify.NewMailer(cfg.SMTP, log)}

	engine := scraper.NewEngine(
		scraper.NewHTTPFetcher(cfg.Scraper.Timeout(), cfg.Scraper.UserAgent),
		scraper.EngineConfig{MaxRetries: cfg.Scraper.MaxRetries, Concurrency: cfg.Scraper.Concurrency},
		log,
		scraper.WithMetrics(m),
	)

	deps := services.Deps{
		SitesFile: cfg.Scraper.SitesFile,
		LoadSites: scraper.LoadSites,
		Collector: engine,
		Workbook:  export.NewExcelExporter(cfg.Excel, log),
		Notifier:  a.mailer,
		Metrics:   m,
		Log:       log,
	}
	if cfg.CSV.Enabled {
		deps.CSV = export.NewCSVExporter(cfg.CSV.Path, log)
	}
	if cfg.Database.Enabled {
		if store := a.openStore(ctx); store != nil {
			deps.Store = store
		}
	}

	a.runs = services.NewRunService(deps)
	log.Info("Application configured",
		logger.String("sites_file", cfg.Scraper.SitesFile),
		logger.Int("max_retries", cfg.Scraper.MaxRetries),
		logger.Duration("timeout", cfg.Scraper.Timeout()),
		logger.Int("concurrency", cfg.Scraper.Concurrency),
		logger.Bool("csv", cfg.CSV.Enabled),
		logger.Bool("database", a.db != nil),
		logger.Bool("smtp_configured", cfg.SMTP.Complete()))
	return a, nil
}

// openStore connects the run history database. Failure disables history
// rather than the scraper.
func (a *app) openStore(ctx context.Context) *database.RecordStore {
	db, err := database.Connect(ctx, a.cfg.Database)
	if err != nil {
		a.log.Error("Run history disabled, database unavailable", logger.Error(err))
		return nil
	}
	store := database.NewRecordStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		a.log.Error("Run history disabled, schema setup failed", logger.Error(err))
		db.Close()
		return nil
	}
	a.db = db
	return store
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", logger.Error(err))
		}
	}
	_ = a.log.Sync()
}
