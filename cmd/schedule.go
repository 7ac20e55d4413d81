// cmd/schedule.go
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/gewnthar/projectscraper/handlers"
	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/scheduler"
)

const shutdownTimeout = 10 * time.Second

func newScheduleCommand(flags *globalFlags) *cobra.Command {
	var skipInitial bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run immediately, then on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := scheduler.New(a.cfg.Schedule, func(ctx context.Context) error {
				_, runErr := a.runs.Run(ctx)
				return runErr
			}, a.log)
			if err != nil {
				return err
			}

			var srv *http.Server
			if a.cfg.Server.Enabled {
				srv = a.startStatusServer(sched)
			}

			if a.cfg.SMTP.Complete() {
				announceStart(ctx, a.mailer, a.cfg.Schedule, a.log)
			}

			if !skipInitial {
				a.log.Info("Running scraper immediately")
				sched.RunNow(ctx)
			}

			sched.Start()
			<-ctx.Done()
			a.log.Info("Shutdown signal received, stopping scheduler")

			sched.Stop()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.log.Warn("Status server shutdown failed", logger.Error(err))
				}
			}
			a.log.Info("Scraper stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipInitial, "no-initial-run", false, "wait for the first scheduled trigger instead of running at startup")
	return cmd
}

func (a *app) startStatusServer(sched *scheduler.Scheduler) *http.Server {
	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var db handlers.Pinger
	if a.db != nil {
		db = a.db
	}
	h := handlers.NewStatusHandler(a.runs, db, sched.RunNow, a.registry, a.log)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("Status server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Status server failed", logger.Error(err))
		}
	}()
	return srv
}
