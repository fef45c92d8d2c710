package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskResult_Success(t *testing.T) {
	assert.True(t, TaskResult{TaskID: TaskIDEmbedSweep}.Success())
	assert.False(t, TaskResult{TaskID: TaskIDEmbedSweep, Err: errors.New("store offline")}.Success())
}

func TestScheduledTask_Due(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, ScheduledTask{}.Due(now), "never scheduled")
	assert.True(t, ScheduledTask{NextRun: now}.Due(now))
	assert.True(t, ScheduledTask{NextRun: now.Add(-time.Second)}.Due(now))
	assert.False(t, ScheduledTask{NextRun: now.Add(time.Minute)}.Due(now))
}

func TestTaskResult_Duration(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := TaskResult{StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond)}

	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}
