package countstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, "auto-flag", "global", PeriodDay)
	assert.NoError(err)
	assert.Equal(0, c)

	assert.NoError(cs.Increment(ctx, "auto-flag", "global"))
	assert.NoError(cs.Increment(ctx, "auto-flag", "global"))
	assert.NoError(cs.Increment(ctx, "auto-flag", "other"))

	for _, period := range []string{PeriodHour, PeriodDay, PeriodTotal} {
		c, err = cs.GetCount(ctx, "auto-flag", "global", period)
		assert.NoError(err)
		assert.Equal(2, c, period)
	}

	c, err = cs.GetCount(ctx, "auto-flag", "other", PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)
}

func TestRedisCountStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	cs, err := NewRedisCountStore("redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}

	assert.NoError(cs.Increment(ctx, "test-counter", "val"))
	c, err := cs.GetCount(ctx, "test-counter", "val", PeriodHour)
	assert.NoError(err)
	assert.Greater(c, 0)
}
