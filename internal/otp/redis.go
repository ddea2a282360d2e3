// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package otp

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces challenge keys.
const DefaultRedisPrefix = "leavegate:otp:"

// verifyScript compares the stored digest and deletes the key on a match.
// Mismatches bump the attempt counter and burn the key at the limit.
// KEYS[1]=challenge key, ARGV[1]=digest, ARGV[2]=max attempts.
var verifyScript = redis.NewScript(`
local d = redis.call('HGET', KEYS[1], 'digest')
if not d then
  return 0
end
if d == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
local n = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if n >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisService stores challenges as redis hashes with a key TTL, so every
// replica of the daemon sees the same challenge.
type RedisService struct {
	client redis.UniversalClient
	prefix string
	opts   Options
}

// NewRedisService returns a Service backed by client.
func NewRedisService(client redis.UniversalClient, prefix string, opts Options) (*RedisService, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisService{client: client, prefix: prefix, opts: opts}, nil
}

func (s *RedisService) key(requestID string) string {
	return s.prefix + requestID
}

func (s *RedisService) Issue(ctx context.Context, requestID string) (Challenge, error) {
	code, err := s.opts.newCode()
	if err != nil {
		return Challenge{}, err
	}
	key := s.key(requestID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "digest", digest(requestID, code), "attempts", 0)
		pipe.PExpire(ctx, key, s.opts.TTL)
		return nil
	})
	if err != nil {
		return Challenge{}, fmt.Errorf("redis otp issue: %w", err)
	}
	return Challenge{RequestID: requestID, Code: code, ExpiresAt: s.opts.Now().Add(s.opts.TTL)}, nil
}

func (s *RedisService) Verify(ctx context.Context, requestID, code string) (bool, error) {
	n, err := verifyScript.Run(ctx, s.client, []string{s.key(requestID)},
		digest(requestID, code), s.opts.MaxAttempts).Int()
	if err != nil {
		return false, fmt.Errorf("redis otp verify: %w", err)
	}
	return n == 1, nil
}

func (s *RedisService) Invalidate(ctx context.Context, requestID string) error {
	if err := s.client.Del(ctx, s.key(requestID)).Err(); err != nil {
		return fmt.Errorf("redis otp invalidate: %w", err)
	}
	return nil
}

// HealthCheck pings the backing redis.
func (s *RedisService) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
