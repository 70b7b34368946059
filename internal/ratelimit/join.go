package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/rondo/internal/config"
)

const keyRoomJoin = "room:join:user:%s"

// JoinLimiter throttles invite code attempts per user so codes cannot be
// brute-forced through the join endpoint.
type JoinLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewJoinLimiter(cfg config.Config) (*JoinLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.JoinRate <= 0 || limitCfg.JoinBurst <= 0 {
		return nil, errors.New("join rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &JoinLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.JoinRate,
		burst:   limitCfg.JoinBurst,
	}, nil
}

func (l *JoinLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowJoin reports whether the user may attempt another join right now.
// A disabled limiter always allows.
func (l *JoinLimiter) AllowJoin(ctx context.Context, userID string) (bool, time.Duration, error) {
	if !l.Enabled() {
		return true, 0, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyRoomJoin, strings.TrimSpace(userID)), l.rate, l.burst)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed, res.RetryAfter, nil
}
