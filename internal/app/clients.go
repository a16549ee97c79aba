package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-editor/internal/auth"
	"github.com/yungbote/neurobridge-editor/internal/clients/courseapi"
	"github.com/yungbote/neurobridge-editor/internal/clients/redis"
	"github.com/yungbote/neurobridge-editor/internal/config"
	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
	"github.com/yungbote/neurobridge-editor/internal/realtime"
	"github.com/yungbote/neurobridge-editor/internal/realtime/bus"
)

type Clients struct {
	CourseAPI *courseapi.Client
	Redis     goredis.UniversalClient
	Flags     redis.FlagStore
	Channel   *realtime.Channel
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Config, session *auth.Session, courseID string, editMode bool) (Clients, error) {
	var out Clients

	api, err := courseapi.New(courseapi.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout.Duration,
		MaxRetries: cfg.API.MaxRetries,
		Tokens:     session,
		Log:        log,
	})
	if err != nil {
		return out, fmt.Errorf("init course api client: %w", err)
	}
	out.CourseAPI = api

	if cfg.Redis.Addr != "" {
		rdb, err := bus.Dial(ctx, cfg.Redis.Addr)
		if err != nil {
			return out, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		flags, err := redis.NewFlagStore(log, rdb, cfg.Redis.FlagPrefix, cfg.Redis.FlagTTL.Duration)
		if err != nil {
			out.Close()
			return out, err
		}
		out.Flags = flags
	} else {
		log.Warn("REDIS_ADDR not set; generation flag kept in memory")
		out.Flags = redis.NewMemoryFlagStore(cfg.Redis.FlagTTL.Duration)
	}

	if editMode {
		return out, nil
	}

	var source realtime.Source
	switch cfg.Stream.Transport {
	case config.TransportRedis:
		if out.Redis == nil {
			return out, fmt.Errorf("stream transport redis requires REDIS_ADDR")
		}
		source, err = bus.NewRedisSource(log, out.Redis, cfg.Redis.ChannelPrefix)
	default:
		if strings.TrimSpace(cfg.Stream.URL) == "" {
			out.Close()
			return out, fmt.Errorf("stream transport sse requires NB_STREAM_URL in generation mode")
		}
		source, err = bus.NewSSESource(log, cfg.Stream.URL, session, nil)
	}
	if err != nil {
		out.Close()
		return out, fmt.Errorf("init progress source: %w", err)
	}

	chLog := log.With("transport", cfg.Stream.Transport)
	out.Channel = realtime.NewChannel(source, courseID, realtime.ChannelOptions{
		ReconnectMin: cfg.Stream.ReconnectMin.Duration,
		ReconnectMax: cfg.Stream.ReconnectMax.Duration,
		Log:          chLog,
		OnState: func(s realtime.State) {
			chLog.Debug("Progress channel state", "state", string(s))
		},
	})
	return out, nil
}
