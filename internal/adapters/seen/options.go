package seen

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxPerViewer bounds how many ids are kept per viewer. The oldest
// ids are evicted first. Values <= 0 keep everything.
func WithMaxPerViewer(n int) Option {
	return func(s *MemoryStore) {
		s.maxPerViewer = n
	}
}

// WithMaxViewers bounds how many viewers are tracked. The viewer written
// least recently is dropped first. Values <= 0 keep everyone.
func WithMaxViewers(n int) Option {
	return func(s *MemoryStore) {
		s.maxViewers = n
	}
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets how long a viewer's seen set lives after its last write.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRedisMaxPerViewer bounds each viewer's set, keeping the most
// recently recorded ids. Values <= 0 keep everything.
func WithRedisMaxPerViewer(n int) RedisOption {
	return func(s *RedisStore) {
		s.maxPerViewer = n
	}
}

// WithKeyPrefix namespaces the Redis keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}
