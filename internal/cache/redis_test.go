package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/course-engine/internal/models"
)

func TestViewKey(t *testing.T) {
	assert.Equal(t, "course:view:c1:full:1", ViewKey("c1", models.PopulateFull, true))
	assert.Equal(t, "course:view:c1:none:0", ViewKey("c1", models.PopulateNone, false))
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c ViewCache = Nop{}
	require.NoError(t, c.Set(ctx, "c1", models.PopulateFull, false, 0, []byte("{}")))

	_, ok, err := c.Get(ctx, "c1", models.PopulateFull, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheInvalidateCourse(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis tests")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Address: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	courseID := uuid.NewString()
	require.NoError(t, c.Set(ctx, courseID, models.PopulateFull, false, 0, []byte(`{"id":"x"}`)))
	require.NoError(t, c.Set(ctx, courseID, models.PopulateChapters, true, 0, []byte(`{"id":"y"}`)))

	data, ok, err := c.Get(ctx, courseID, models.PopulateFull, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"x"}`, string(data))

	require.NoError(t, c.InvalidateCourse(ctx, courseID))

	_, ok, err = c.Get(ctx, courseID, models.PopulateChapters, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheSkipsViewsFromBeforeInvalidation(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis tests")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Address: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	courseID := uuid.NewString()
	version, err := c.Version(ctx, courseID)
	require.NoError(t, err)

	require.NoError(t, c.InvalidateCourse(ctx, courseID))
	require.NoError(t, c.Set(ctx, courseID, models.PopulateFull, false, version, []byte(`{"id":"old"}`)))

	_, ok, err := c.Get(ctx, courseID, models.PopulateFull, false)
	require.NoError(t, err)
	assert.False(t, ok)

	current, err := c.Version(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, version+1, current)
}
