package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
	"github.com/yungbote/neurobridge-editor/internal/realtime"
)

// RedisSource reads generation events from a per-course pub/sub channel.
type RedisSource struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisSource(log *logger.Logger, rdb goredis.UniversalClient, channelPrefix string) (*RedisSource, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	channelPrefix = strings.TrimSpace(channelPrefix)
	if channelPrefix == "" {
		channelPrefix = "course-progress:"
	}
	return &RedisSource{
		log:    log.With("service", "RedisProgressSource"),
		rdb:    rdb,
		prefix: channelPrefix,
	}, nil
}

// Dial connects and pings, mirroring how the rest of the stack opens redis.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisSource) Channel(courseID string) string { return s.prefix + courseID }

func (s *RedisSource) Stream(ctx context.Context, courseID string, onOpen func(), onMsg func(realtime.Message)) error {
	sub := s.rdb.Subscribe(ctx, s.Channel(courseID))
	defer sub.Close()

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	if onOpen != nil {
		onOpen()
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok || m == nil {
				return nil
			}
			msg, err := decodeEnvelope([]byte(m.Payload))
			if err != nil {
				s.log.Warn("bad redis progress payload", "error", err)
				continue
			}
			onMsg(msg)
		}
	}
}

// Publish sends msg to the course channel. Used by tooling and integration tests.
func (s *RedisSource) Publish(ctx context.Context, courseID string, msg realtime.Message) error {
	raw, err := Encode(msg)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.Channel(courseID), raw).Err()
}
