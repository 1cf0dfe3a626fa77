package publish

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunematch/uiverify/internal/config"
	"github.com/tunematch/uiverify/internal/flow"
	"github.com/tunematch/uiverify/internal/report"
)

func finishedRun(err error) *report.Run {
	r := report.New("http://localhost:3000", "chromium", true)
	r.Finish(err)
	return r
}

func TestNewWithoutAddrIsNop(t *testing.T) {
	p := New(config.RedisConfig{})
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), finishedRun(nil)))
	assert.NoError(t, p.Close())
}

func TestFields(t *testing.T) {
	r := finishedRun(&flow.StepError{Index: 0, Step: "navigate", Err: flow.ErrTargetUnreachable})
	f := Fields(r)

	assert.Equal(t, r.ID, f["run_id"])
	assert.Equal(t, "failed", f["outcome"])
	assert.Equal(t, "navigate", f["failed_step"])
	assert.Equal(t, "http://localhost:3000", f["base_url"])
	assert.NotEmpty(t, f["duration_ms"])
}

func TestPublishToUnreachableRedisFails(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	p := NewRedisStream(client, "uiverify:runs", 100)
	defer p.Close()

	err = p.Publish(context.Background(), finishedRun(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uiverify:runs")
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestPublishAppendsTrimmedStreamEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2, DisableIdentity: true})
	p := NewRedisStream(client, "uiverify:runs", 3)
	defer p.Close()

	ctx := context.Background()
	var last *report.Run
	for i := 0; i < 5; i++ {
		last = finishedRun(&flow.StepError{Index: 2, Step: "click see demo", Err: flow.ErrTimeout})
		require.NoError(t, p.Publish(ctx, last))
	}

	entries, err := client.XRange(ctx, "uiverify:runs", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	got := entries[len(entries)-1].Values
	assert.Equal(t, last.ID, got["run_id"])
	assert.Equal(t, "failed", got["outcome"])
	assert.Equal(t, "click see demo", got["failed_step"])
	assert.Equal(t, "http://localhost:3000", got["base_url"])
	assert.Equal(t, last.Finished.Format(time.RFC3339), got["finished"])
}

func TestPublishWithoutMaxLenKeepsEverything(t *testing.T) {
	mr := miniredis.RunT(t)
	p := New(config.RedisConfig{Addr: mr.Addr(), Stream: "runs"})
	defer p.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, p.Publish(context.Background(), finishedRun(nil)))
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2, DisableIdentity: true})
	defer client.Close()
	n, err := client.XLen(context.Background(), "runs").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
