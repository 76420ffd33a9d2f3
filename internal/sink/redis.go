package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis publishes records on a channel. A SET NX key per record keeps several
// watchers on the same chain from announcing a match twice.
type Redis struct {
	cli       *redis.Client
	channel   string
	dedupeTTL time.Duration
}

func NewRedis(cli *redis.Client, channel string, dedupeTTL time.Duration) *Redis {
	return &Redis{cli: cli, channel: channel, dedupeTTL: dedupeTTL}
}

func (s *Redis) Name() string { return "redis" }

func (s *Redis) Publish(ctx context.Context, rec Record) error {
	if s.dedupeTTL > 0 {
		fresh, err := s.cli.SetNX(ctx, "dedupe:"+s.channel+":"+rec.RecordKey(), 1, s.dedupeTTL).Result()
		if err != nil {
			return fmt.Errorf("dedupe: %w", err)
		}
		if !fresh {
			return nil
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.cli.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.cli.Close()
}
