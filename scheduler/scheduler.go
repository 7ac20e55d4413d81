// Package scheduler triggers scrape runs on a daily start time plus a fixed
// interval, never more than one run at a time.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gewnthar/projectscraper/config"
	"github.com/gewnthar/projectscraper/logger"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

type Option func(*Scheduler)

// WithClock replaces the time source used for the weekend check.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

type Scheduler struct {
	cron     *cron.Cron
	job      Job
	weekends bool
	loc      *time.Location
	now      func() time.Time
	log      logger.Logger

	// running is shared by every entry so the daily and interval triggers
	// cannot overlap each other either.
	running sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New registers job on the daily start time and on the interval.
func New(cfg config.ScheduleConfig, job Job, log logger.Logger, opts ...Option) (*Scheduler, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	daily, err := DailySpec(cfg.StartTime)
	if err != nil {
		return nil, err
	}
	interval, err := IntervalSpec(cfg.IntervalMinutes)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		job:      job,
		weekends: cfg.Weekends(),
		loc:      loc,
		now:      time.Now,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{log})),
	)
	for _, spec := range []string{daily, interval} {
		if _, err := s.cron.AddFunc(spec, func() { s.Tick(s.ctx) }); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule %q: %w", spec, err)
		}
	}

	log.Info("Scheduler configured",
		logger.String("daily", daily),
		logger.String("interval", interval),
		logger.Bool("run_on_weekends", s.weekends),
		logger.String("timezone", loc.String()))
	return s, nil
}

// DailySpec converts an HH:MM start time into a cron expression.
func DailySpec(startTime string) (string, error) {
	hh, mm, ok := strings.Cut(startTime, ":")
	if !ok {
		return "", fmt.Errorf("invalid start time %q, expected HH:MM", startTime)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return "", fmt.Errorf("invalid start hour in %q", startTime)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return "", fmt.Errorf("invalid start minute in %q", startTime)
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}

// IntervalSpec converts a minute interval into a cron descriptor.
func IntervalSpec(minutes int) (string, error) {
	if minutes < 1 {
		return "", fmt.Errorf("invalid schedule interval %d, must be at least 1 minute", minutes)
	}
	return fmt.Sprintf("@every %dm", minutes), nil
}

// Start begins dispatching in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("Next scheduled run", logger.Time("at", e.Next))
	}
}

// Stop stops dispatching, cancels an in-flight run and waits for it.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// Tick is what every schedule entry fires. It skips weekends when configured
// and skips entirely while another run is in flight. It reports whether the
// job ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.now().In(s.loc)
	if !s.weekends && isWeekend(now) {
		s.log.Info("Skipping scheduled run on weekend", logger.Time("at", now))
		return false
	}
	return s.RunNow(ctx)
}

// RunNow runs the job immediately unless a run is already in flight.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.log.Warn("Previous run still in progress, skipping")
		return false
	}
	defer s.running.Unlock()

	start := s.now()
	s.log.Info("Running scheduled job", logger.Time("at", start))
	if err := s.job(ctx); err != nil {
		s.log.Error("Scheduled job failed", logger.Error(err))
	} else {
		s.log.Info("Scheduled job completed", logger.Duration("duration", s.now().Sub(start)))
	}
	return true
}

func isWeekend(t time.Time) bool {
	d := t.Weekday()
	return d == time.Saturday || d == time.Sunday
}

// cronLogger routes cron's own messages into the application logger.
type cronLogger struct{ log logger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, pairs(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(pairs(keysAndValues), logger.Error(err))...)
}

func pairs(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
