package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/projectscraper/config"
	"github.com/gewnthar/projectscraper/logger"
)

type recordingNotifier struct {
	messages []string
	err      error
}

func (r *recordingNotifier) SendNotification(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return r.err
}

func TestAnnounceStart(t *testing.T) {
	off := false
	cfg := config.ScheduleConfig{StartTime: "08:00", IntervalMinutes: 60, RunOnWeekends: &off}

	n := &recordingNotifier{}
	announceStart(context.Background(), n, cfg, logger.NewNop())

	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "Daily run at 08:00, then every 60 minutes.")
	assert.Contains(t, n.messages[0], "Weekend runs: no.")
}

func TestAnnounceStart_FailureIsNotFatal(t *testing.T) {
	n := &recordingNotifier{err: errors.New("smtp down")}
	assert.NotPanics(t, func() {
		announceStart(context.Background(), n, config.ScheduleConfig{StartTime: "09:30", IntervalMinutes: 15}, logger.NewNop())
	})
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "Weekend runs: yes.")
}
