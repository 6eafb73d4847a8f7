package seen_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vitrine/internal/adapters/seen"
)

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		s := seen.NewMemoryStore(seen.WithMaxPerViewer(3))

		Convey("When the viewer is unknown", func() {
			ids, err := s.Seen(ctx, "u1")

			Convey("Then the set should be empty", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldNotBeNil)
				So(len(ids), ShouldEqual, 0)
			})
		})

		Convey("When ids are recorded twice", func() {
			So(s.Record(ctx, "u1", "a", "b", "a"), ShouldBeNil)
			So(s.Record(ctx, "u1", "b", ""), ShouldBeNil)

			Convey("Then each id should be stored once", func() {
				So(s.Size("u1"), ShouldEqual, 2)
				ids, _ := s.Seen(ctx, "u1")
				So(ids, ShouldContainKey, "a")
				So(ids, ShouldContainKey, "b")
			})
		})

		Convey("When the bound is exceeded", func() {
			So(s.Record(ctx, "u1", "a", "b", "c", "d"), ShouldBeNil)
			So(s.Record(ctx, "u1", "e"), ShouldBeNil)

			Convey("Then the oldest ids should be evicted", func() {
				ids, _ := s.Seen(ctx, "u1")
				So(len(ids), ShouldEqual, 3)
				So(ids, ShouldNotContainKey, "a")
				So(ids, ShouldNotContainKey, "b")
				So(ids, ShouldContainKey, "e")
			})
		})

		Convey("When viewers differ", func() {
			So(s.Record(ctx, "u1", "a"), ShouldBeNil)
			So(s.Record(ctx, "u2", "b"), ShouldBeNil)

			Convey("Then sets should be isolated", func() {
				ids, _ := s.Seen(ctx, "u2")
				So(ids, ShouldNotContainKey, "a")
				So(ids, ShouldContainKey, "b")
			})
		})

		Convey("When the returned set is modified", func() {
			So(s.Record(ctx, "u1", "a"), ShouldBeNil)
			ids, _ := s.Seen(ctx, "u1")
			delete(ids, "a")

			Convey("Then the store should be unaffected", func() {
				So(s.Size("u1"), ShouldEqual, 1)
			})
		})

		Convey("When the viewer id is empty", func() {
			err := s.Record(ctx, "", "a")
			So(errors.Is(err, seen.ErrNoViewer), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded memory store under concurrent writes", t, func() {
		ctx := context.Background()
		s := seen.NewMemoryStore(seen.WithMaxPerViewer(0))

		var wg sync.WaitGroup
		for w := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 100 {
					_ = s.Record(ctx, "u1", fmt.Sprintf("%d-%d", w, i))
					_, _ = s.Seen(ctx, "u1")
				}
			}()
		}
		wg.Wait()

		So(s.Size("u1"), ShouldEqual, 800)
	})

	Convey("Given a memory store bounded to two viewers", t, func() {
		ctx := context.Background()
		s := seen.NewMemoryStore(seen.WithMaxPerViewer(2), seen.WithMaxViewers(2))
		So(s.Record(ctx, "u1", "a", "b"), ShouldBeNil)
		So(s.Record(ctx, "u2", "c"), ShouldBeNil)

		Convey("When a third viewer records", func() {
			So(s.Record(ctx, "u3", "d"), ShouldBeNil)

			Convey("Then the least recently written viewer should be forgotten", func() {
				So(s.Viewers(), ShouldEqual, 2)
				ids, err := s.Seen(ctx, "u1")
				So(err, ShouldBeNil)
				So(ids, ShouldBeEmpty)
				So(s.Size("u2"), ShouldEqual, 1)
				So(s.Size("u3"), ShouldEqual, 1)
			})
		})

		Convey("When the oldest viewer writes again first", func() {
			So(s.Record(ctx, "u1", "e"), ShouldBeNil)
			So(s.Record(ctx, "u3", "d"), ShouldBeNil)

			Convey("Then the other viewer should be forgotten instead", func() {
				So(s.Size("u1"), ShouldEqual, 2)
				So(s.Size("u2"), ShouldEqual, 0)
			})
		})

		Convey("When many viewers churn through", func() {
			for i := range 50 {
				So(s.Record(ctx, fmt.Sprintf("x%d", i), "a", "b", "c"), ShouldBeNil)
			}

			Convey("Then the store should stay within both bounds", func() {
				So(s.Viewers(), ShouldEqual, 2)
				So(s.Size("x49"), ShouldEqual, 2)
				So(s.Size("x48"), ShouldEqual, 2)
			})
		})
	})
}

// recordingHook answers commands locally and keeps what was sent.
type recordingHook struct {
	mu      sync.Mutex
	sent    [][]any
	members []string
}

func (h *recordingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *recordingHook) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.sent = append(h.sent, cmd.Args())
		if c, ok := cmd.(*redis.StringSliceCmd); ok {
			c.SetVal(h.members)
		}
		return nil
	}
}

func (h *recordingHook) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(_ context.Context, cmds []redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, cmd := range cmds {
			h.sent = append(h.sent, cmd.Args())
		}
		return nil
	}
}

func (h *recordingHook) command(name string) []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, args := range h.sent {
		if len(args) > 0 && args[0] == name {
			return args
		}
	}
	return nil
}

func TestRedisStoreCommands(t *testing.T) {
	Convey("Given a redis store bounded to two ids per viewer", t, func() {
		ctx := context.Background()
		hook := &recordingHook{}
		rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		rdb.AddHook(hook)
		defer func() { _ = rdb.Close() }()

		s := seen.NewRedisStore(rdb,
			seen.WithKeyPrefix("test:seen"),
			seen.WithTTL(time.Hour),
			seen.WithRedisMaxPerViewer(2))

		Convey("When ids are recorded", func() {
			So(s.Record(ctx, "42", "a", "", "b", "c"), ShouldBeNil)

			Convey("Then every non-empty id should be added to the sorted set", func() {
				zadd := hook.command("zadd")
				So(zadd, ShouldNotBeNil)
				So(zadd[1], ShouldEqual, "test:seen:42")
				So(zadd[2:], ShouldHaveLength, 6)
				So(zadd[3], ShouldEqual, "a")
				So(zadd[5], ShouldEqual, "b")
				So(zadd[7], ShouldEqual, "c")
			})

			Convey("Then the set should be trimmed to the newest two", func() {
				trim := hook.command("zremrangebyrank")
				So(trim, ShouldResemble, []any{"zremrangebyrank", "test:seen:42", int64(0), int64(-3)})
			})

			Convey("Then the ttl should be refreshed", func() {
				So(hook.command("expire"), ShouldNotBeNil)
			})
		})

		Convey("When only empty ids are recorded", func() {
			So(s.Record(ctx, "42", ""), ShouldBeNil)
			So(hook.command("zadd"), ShouldBeNil)
		})

		Convey("When the store is unbounded", func() {
			unbounded := seen.NewRedisStore(rdb, seen.WithRedisMaxPerViewer(0))
			So(unbounded.Record(ctx, "42", "a"), ShouldBeNil)
			So(hook.command("zadd"), ShouldNotBeNil)
			So(hook.command("zremrangebyrank"), ShouldBeNil)
		})

		Convey("When the set is read back", func() {
			hook.members = []string{"b", "c"}
			ids, err := s.Seen(ctx, "42")

			Convey("Then members should come from the whole sorted set", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, map[string]struct{}{"b": {}, "c": {}})
				zrange := hook.command("zrange")
				So(zrange, ShouldNotBeNil)
				So(zrange[1], ShouldEqual, "test:seen:42")
			})
		})
	})
}

func TestRedisStore(t *testing.T) {
	Convey("Given a redis store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		rdb := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer func() { _ = rdb.Close() }()

		s := seen.NewRedisStore(rdb, seen.WithKeyPrefix("test:seen"), seen.WithTTL(time.Hour))

		Convey("Then keys should be namespaced per viewer", func() {
			So(s.Key("42"), ShouldEqual, "test:seen:42")
			So(seen.NewRedisStore(rdb).Key("42"), ShouldEqual, "vitrine:seen:42")
		})

		Convey("When recording nothing", func() {
			So(s.Record(ctx, "42"), ShouldBeNil)
		})

		Convey("When the viewer id is empty", func() {
			So(errors.Is(s.Record(ctx, "", "a"), seen.ErrNoViewer), ShouldBeTrue)
		})

		Convey("When redis is unreachable", func() {
			_, err := s.Seen(ctx, "42")

			Convey("Then errors should surface to the caller", func() {
				So(err, ShouldNotBeNil)
				So(s.Record(ctx, "42", "a"), ShouldNotBeNil)
				So(s.Ping(ctx), ShouldNotBeNil)
			})
		})
	})
}
