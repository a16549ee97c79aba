package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
)

const (
	DefaultFlagPrefix = "course-generating:"
	DefaultFlagTTL    = 30 * time.Minute
)

// FlagStore remembers which courses have a generation in flight so a reopened
// editor resumes in the starting state instead of idle.
type FlagStore interface {
	Mark(ctx context.Context, courseID string) error
	Active(ctx context.Context, courseID string) (bool, error)
	Clear(ctx context.Context, courseID string) error
}

type redisFlagStore struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewFlagStore(log *logger.Logger, rdb goredis.UniversalClient, prefix string, ttl time.Duration) (FlagStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultFlagPrefix
	}
	if ttl <= 0 {
		ttl = DefaultFlagTTL
	}
	return &redisFlagStore{
		log:    log.With("service", "RedisFlagStore"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (s *redisFlagStore) key(courseID string) string { return s.prefix + courseID }

func (s *redisFlagStore) Mark(ctx context.Context, courseID string) error {
	if err := s.rdb.Set(ctx, s.key(courseID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("mark generating: %w", err)
	}
	return nil
}

func (s *redisFlagStore) Active(ctx context.Context, courseID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(courseID)).Result()
	if err != nil {
		return false, fmt.Errorf("check generating: %w", err)
	}
	return n > 0, nil
}

func (s *redisFlagStore) Clear(ctx context.Context, courseID string) error {
	if err := s.rdb.Del(ctx, s.key(courseID)).Err(); err != nil {
		return fmt.Errorf("clear generating: %w", err)
	}
	return nil
}

// MemoryFlagStore is the in-process fallback used when redis is not configured.
type MemoryFlagStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	flags map[string]time.Time
}

func NewMemoryFlagStore(ttl time.Duration) *MemoryFlagStore {
	if ttl <= 0 {
		ttl = DefaultFlagTTL
	}
	return &MemoryFlagStore{ttl: ttl, now: time.Now, flags: make(map[string]time.Time)}
}

func (m *MemoryFlagStore) Mark(_ context.Context, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[courseID] = m.now().Add(m.ttl)
	return nil
}

func (m *MemoryFlagStore) Active(_ context.Context, courseID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.flags[courseID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.flags, courseID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryFlagStore) Clear(_ context.Context, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flags, courseID)
	return nil
}
