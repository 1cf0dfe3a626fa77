// Package publish sends finished run summaries to external sinks.
package publish

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tunematch/uiverify/internal/config"
	"github.com/tunematch/uiverify/internal/report"
)

// Publisher delivers a run summary somewhere.
type Publisher interface {
	Publish(ctx context.Context, run *report.Run) error
	Close() error
}

// Nop drops every run.
type Nop struct{}

func (Nop) Publish(context.Context, *report.Run) error { return nil }
func (Nop) Close() error                               { return nil }

// RedisStream appends runs to a Redis stream.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// New returns a Redis publisher when one is configured and Nop otherwise.
func New(cfg config.RedisConfig) Publisher {
	if !cfg.Enabled() {
		return Nop{}
	}
	return NewRedisStream(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Stream, cfg.MaxLen)
}

// NewRedisStream wraps an existing client.
func NewRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

// Publish adds one entry to the stream, trimming it approximately to maxLen.
func (p *RedisStream) Publish(ctx context.Context, run *report.Run) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: Fields(run),
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish run %s to %s: %w", run.ID, p.stream, err)
	}
	return nil
}

// Close closes the Redis client.
func (p *RedisStream) Close() error {
	return p.client.Close()
}

// Fields flattens a run into stream entry fields.
func Fields(run *report.Run) map[string]interface{} {
	return map[string]interface{}{
		"run_id":      run.ID,
		"outcome":     string(run.Outcome),
		"failed_step": run.FailedStep,
		"duration_ms": strconv.FormatInt(run.Duration().Milliseconds(), 10),
		"base_url":    run.BaseURL,
		"finished":    run.Finished.Format(time.RFC3339),
	}
}
