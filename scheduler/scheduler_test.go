package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/projectscraper/config"
	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/scheduler"
)

func TestDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"08:00", "0 8 * * *", false},
		{"23:45", "45 23 * * *", false},
		{"7:05", "5 7 * * *", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"noon", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := scheduler.DailySpec(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntervalSpec(t *testing.T) {
	got, err := scheduler.IntervalSpec(30)
	require.NoError(t, err)
	assert.Equal(t, "@every 30m", got)

	_, err = scheduler.IntervalSpec(0)
	assert.Error(t, err)
}

func scheduleConfig(weekends bool) config.ScheduleConfig {
	return config.ScheduleConfig{
		IntervalMinutes: 60,
		StartTime:       "08:00",
		RunOnWeekends:   &weekends,
		Timezone:        "UTC",
	}
}

func TestTick_SkipsWeekendsWhenDisabled(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	now := saturday

	var runs atomic.Int32
	job := func(context.Context) error { runs.Add(1); return nil }

	s, err := scheduler.New(scheduleConfig(false), job, logger.NewNop(),
		scheduler.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	assert.False(t, s.Tick(context.Background()))
	assert.Equal(t, int32(0), runs.Load())

	now = monday
	assert.True(t, s.Tick(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}

func TestTick_RunsOnWeekendsByDefault(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	cfg := scheduleConfig(true)
	cfg.RunOnWeekends = nil

	s, err := scheduler.New(cfg, func(context.Context) error { return nil }, logger.NewNop(),
		scheduler.WithClock(func() time.Time { return sunday }))
	require.NoError(t, err)
	assert.True(t, s.Tick(context.Background()))
}

func TestRunNow_SkipsWhileRunInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	job := func(context.Context) error {
		close(started)
		<-release
		return nil
	}

	s, err := scheduler.New(scheduleConfig(true), job, logger.NewNop())
	require.NoError(t, err)

	done := make(chan bool)
	go func() { done <- s.RunNow(context.Background()) }()
	<-started

	assert.False(t, s.Tick(context.Background()))
	close(release)
	assert.True(t, <-done)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := scheduleConfig(true)
	cfg.Timezone = "Mars/Olympus"
	_, err := scheduler.New(cfg, func(context.Context) error { return nil }, logger.NewNop())
	assert.Error(t, err)

	cfg = scheduleConfig(true)
	cfg.StartTime = "8am"
	_, err = scheduler.New(cfg, func(context.Context) error { return nil }, logger.NewNop())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := scheduler.New(scheduleConfig(true), func(context.Context) error { return nil }, logger.NewNop())
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
