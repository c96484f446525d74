package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 3 * time.Second

// Redis хранит слоты ключами <prefix><slot> без TTL.
// Позволяет нескольким процессам разделять одну сессию.
type Redis struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
}

// NewRedis создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой - используется "route-planner:cred:".
func NewRedis(redisURL, prefix string, log *slog.Logger) (*Redis, error) {
	const op = "credentials.NewRedis"

	if prefix == "" {
		prefix = "route-planner:cred:"
	}

	if log == nil {
		log = slog.Default()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Redis{rdb: rdb, prefix: prefix, log: log}, nil
}

func (r *Redis) key(slot Slot) string { return r.prefix + string(slot) }

func (r *Redis) Get(slot Slot) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := r.rdb.Get(ctx, r.key(slot)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("credentials_read_failed",
				slog.String("slot", string(slot)),
				slog.String("err", err.Error()),
			)
		}
		return "", false
	}

	return v, v != ""
}

func (r *Redis) Set(slot Slot, value string) {
	if !valid(slot) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.rdb.Set(ctx, r.key(slot), value, 0).Err(); err != nil {
		r.log.Warn("credentials_write_failed",
			slog.String("slot", string(slot)),
			slog.String("err", err.Error()),
		)
	}
}

func (r *Redis) Clear(slot Slot) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.rdb.Del(ctx, r.key(slot)).Err(); err != nil {
		r.log.Warn("credentials_clear_failed",
			slog.String("slot", string(slot)),
			slog.String("err", err.Error()),
		)
	}
}

// Close закрывает клиент Redis.
func (r *Redis) Close() error { return r.rdb.Close() }

var _ ClosableStore = (*Redis)(nil)
