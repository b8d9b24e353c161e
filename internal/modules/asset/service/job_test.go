package service

import (
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleCleanup(t *testing.T) {
	c := cron.New()
	svc := NewAssetService(new(MockAssetRepository), new(MockObjectStorage), time.Hour)

	id, err := ScheduleCleanup(c, "@every 12h", svc)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, c.Entries(), 1)

	_, err = ScheduleCleanup(c, "whenever", svc)
	assert.Error(t, err)
}
