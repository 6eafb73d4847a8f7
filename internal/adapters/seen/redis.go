package seen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "vitrine:seen"
	defaultTTL       = 7 * 24 * time.Hour
)

// RedisStore keeps seen sets in Redis so they survive restarts and are
// shared across replicas. Each viewer's set is a sorted set scored by
// record time, trimmed to the newest maxPerViewer ids.
type RedisStore struct {
	rdb          redis.UniversalClient
	prefix       string
	ttl          time.Duration
	maxPerViewer int
	now          func() time.Time
}

// NewRedisClient creates a client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:          rdb,
		prefix:       defaultKeyPrefix,
		ttl:          defaultTTL,
		maxPerViewer: defaultMaxPerViewer,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the set key for viewerID.
func (s *RedisStore) Key(viewerID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, viewerID)
}

// Seen returns the members of viewerID's set.
func (s *RedisStore) Seen(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	ids, err := s.rdb.ZRange(ctx, s.Key(viewerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("seen %s: %w", viewerID, err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// Record adds ids, trims the set and refreshes the TTL in one round trip.
func (s *RedisStore) Record(ctx context.Context, viewerID string, ids ...string) error {
	if viewerID == "" {
		return ErrNoViewer
	}
	if len(ids) == 0 {
		return nil
	}
	base := float64(s.now().UnixMicro())
	members := make([]redis.Z, 0, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		members = append(members, redis.Z{Score: base + float64(i), Member: id})
	}
	if len(members) == 0 {
		return nil
	}

	key := s.Key(viewerID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, members...)
		if s.maxPerViewer > 0 {
			p.ZRemRangeByRank(ctx, key, 0, int64(-s.maxPerViewer-1))
		}
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record seen %s: %w", viewerID, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
