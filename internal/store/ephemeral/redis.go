package ephemeral

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/chalkcast/appserver/internal/platform/logger"
)

type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedis connects the ephemeral store and verifies the connection.
func NewRedis(log *logger.Logger, addr string) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisStore{log: log.With("service", "EphemeralStore"), rdb: rdb}, nil
}

func (s *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *redisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.rdb.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (s *redisStore) SCard(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard: %w", err)
	}
	return n, nil
}

func (s *redisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return members, nil
}

func (s *redisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := s.rdb.HSet(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *redisStore) HMGet(ctx context.Context, key string, fields ...string) ([]string, error) {
	vals, err := s.rdb.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			out[i] = str
		}
	}
	return out, nil
}

func (s *redisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	vals, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	return vals, nil
}

func (s *redisStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := s.rdb.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis scan: %w", err)
	}
	return keys, next, nil
}

func (s *redisStore) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

type redisSubscription struct {
	sub *goredis.PubSub
	out chan []byte
}

func (s *redisStore) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := s.rdb.Subscribe(ctx, channel)
	// ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	rs := &redisSubscription{sub: sub, out: make(chan []byte, 1)}
	go func() {
		defer close(rs.out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				select {
				case rs.out <- []byte(m.Payload):
				case <-ctx.Done():
					_ = sub.Close()
					return
				}
			}
		}
	}()
	return rs, nil
}

func (r *redisSubscription) Messages() <-chan []byte { return r.out }
func (r *redisSubscription) Close() error            { return r.sub.Close() }

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
