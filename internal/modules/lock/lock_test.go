package lock

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func TestNopGuard(t *testing.T) {
	var g Guard = Nop{}
	ctx := context.Background()
	if g.Acquire(ctx) != nil || g.Extend(ctx) != nil || g.Release(ctx) != nil {
		t.Error("nop guard never fails")
	}
}

func TestRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	g := NewRedis(client, "jats:test", time.Minute)
	err := g.Acquire(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if errors.Is(err, ErrHeld) {
		t.Errorf("connection failure must not be reported as held lock: %v", err)
	}
}

func TestTokensAreUnique(t *testing.T) {
	a := NewRedis(nil, "k", time.Second)
	b := NewRedis(nil, "k", time.Second)
	if a.token == "" || a.token == b.token {
		t.Errorf("instance tokens must be unique: %q %q", a.token, b.token)
	}
}
