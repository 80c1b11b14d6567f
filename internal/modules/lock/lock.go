package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrHeld: ключ занят другим экземпляром.
var ErrHeld = errors.New("instance lock is held by another process")

// Guard: защита от второго экземпляра на том же счёте.
type Guard interface {
	Acquire(ctx context.Context) error
	Extend(ctx context.Context) error
	Release(ctx context.Context) error
}

type Nop struct{}

func (Nop) Acquire(context.Context) error { return nil }
func (Nop) Extend(context.Context) error  { return nil }
func (Nop) Release(context.Context) error { return nil }

var (
	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)
)

// Redis: SETNX с токеном экземпляра; продление и снятие только своим токеном.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	token  string
}

func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		key:    key,
		ttl:    ttl,
		token:  uuid.NewString(),
	}
}

func (r *Redis) Acquire(ctx context.Context) error {
	ok, err := r.client.SetNX(ctx, r.key, r.token, r.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "redis setnx")
	}
	if !ok {
		return errors.Wrap(ErrHeld, r.key)
	}
	return nil
}

func (r *Redis) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, r.client, []string{r.key}, r.token, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return errors.Wrap(err, "redis extend")
	}
	if n == 0 {
		return errors.Errorf("lock %s lost", r.key)
	}
	return nil
}

func (r *Redis) Release(ctx context.Context) error {
	if _, err := releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Result(); err != nil {
		return errors.Wrap(err, "redis release")
	}
	return nil
}
