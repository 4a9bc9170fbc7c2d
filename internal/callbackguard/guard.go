package callbackguard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard serializes work per key across requests. Acquire returns false when
// another holder already owns the key.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

const keyPrefix = "payments:settle"

// releaseScript deletes the key only if we still own it, so a holder that
// outlived the TTL cannot free someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func (g *redisGuard) Acquire(ctx context.Context, key string) (func(), bool, error) {
	k := keyPrefix + ":" + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, k, token, g.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.client, []string{k}, token).Err()
	}
	return release, true, nil
}

// MemoryGuard is the single-process fallback.
type MemoryGuard struct {
	mu     sync.Mutex
	held   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
	now    func() time.Time
}

func NewMemory(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MemoryGuard{
		held:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: time.Now().Add(ttl),
		now:    time.Now,
	}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), bool, error) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.held[key]; ok && exp.After(now) {
		return nil, false, nil
	}

	exp := now.Add(g.ttl)
	g.held[key] = exp
	if now.After(g.nextGC) {
		for k, e := range g.held {
			if e.Before(now) {
				delete(g.held, k)
			}
		}
		g.nextGC = now.Add(g.ttl)
	}

	release := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.held[key] == exp {
			delete(g.held, key)
		}
	}
	return release, true, nil
}

// New builds a Redis guard and falls back to in-memory when addr is empty
// or Redis is unreachable. The returned error only reports the fallback.
func New(addr, pass string, db int, ttl time.Duration) (Guard, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if addr == "" {
		return NewMemory(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NewMemory(ttl), err
	}

	return &redisGuard{client: client, ttl: ttl}, nil
}
