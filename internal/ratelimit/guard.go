package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the guard's verdict for one request. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Guard is a fixed-window request limiter keyed by user and route
// class, backed by redis. When redis is unreachable the guard lets the
// request through; availability wins over strictness here.
type Guard struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewGuard(client *redis.Client, limit int, window time.Duration) *Guard {
	return &Guard{client: client, limit: int64(limit), window: window}
}

func (g *Guard) Allow(ctx context.Context, userID, routeClass string) Decision {
	key := fmt.Sprintf("ratelimit:%s:%s", routeClass, userID)

	count, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("rate guard redis error for %s, allowing request: %v", key, err)
		return Decision{Allowed: true}
	}

	if count == 1 {
		if err := g.client.Expire(ctx, key, g.window).Err(); err != nil {
			log.Printf("failed to set expiry on %s: %v", key, err)
		}
	}

	if count <= g.limit {
		return Decision{Allowed: true}
	}

	retryAfter := g.window
	if ttl, err := g.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		retryAfter = ttl
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}
}
