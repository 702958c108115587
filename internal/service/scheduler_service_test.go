package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("00:00")
	require.NoError(t, err)
	assert.Equal(t, "0 0 0 * * *", spec)

	spec, err = buildDailySpec(" 21:05 ")
	require.NoError(t, err)
	assert.Equal(t, "0 5 21 * * *", spec)

	for _, bad := range []string{"", "24:00", "12:60", "noon", "1:2:3"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerService_ScheduleDaily(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop())

	id, err := s.ScheduleDaily("reset", "03:30", func() {})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	next := s.Next(id)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 30, next.Minute())

	_, err = s.ScheduleDaily("broken", "25:00", func() {})
	assert.Error(t, err)
}
