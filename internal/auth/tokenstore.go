// AngelaMos | 2026
// tokenstore.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/repuestospro/backend/internal/core"
)

type TokenStore interface {
	BlacklistJTI(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	SaveChallenge(ctx context.Context, token, userID string, ttl time.Duration) error
	// ReserveChallengeAttempt counts one attempt against the challenge and
	// returns it with the updated count. A missing challenge is ErrNotFound.
	ReserveChallengeAttempt(ctx context.Context, token string) (*TwoFactorChallenge, error)
	DeleteChallenge(ctx context.Context, token string) error
}

const (
	blacklistPrefix = "blacklist:"
	challengePrefix = "2fa:challenge:"
)

type redisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client}
}

func (s *redisTokenStore) BlacklistJTI(
	ctx context.Context,
	jti string,
	ttl time.Duration,
) error {
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *redisTokenStore) IsBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	exists, err := s.client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}

func (s *redisTokenStore) SaveChallenge(
	ctx context.Context,
	token, userID string,
	ttl time.Duration,
) error {
	key := challengePrefix + core.HashToken(token)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "user_id", userID, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save 2fa challenge: %w", err)
	}

	return nil
}

// reserveAttemptScript increments the attempt counter only while the
// challenge exists, so an expired challenge is never recreated without a TTL.
var reserveAttemptScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return false
end
local attempts = redis.call("HINCRBY", KEYS[1], "attempts", 1)
return {redis.call("HGET", KEYS[1], "user_id"), attempts}
`)

func (s *redisTokenStore) ReserveChallengeAttempt(
	ctx context.Context,
	token string,
) (*TwoFactorChallenge, error) {
	key := challengePrefix + core.HashToken(token)

	res, err := reserveAttemptScript.Run(ctx, s.client, []string{key}).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("reserve 2fa attempt: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("reserve 2fa attempt: %w", err)
	}

	return parseReservation(res)
}

func parseReservation(res []any) (*TwoFactorChallenge, error) {
	if len(res) != 2 {
		return nil, fmt.Errorf("reserve 2fa attempt: unexpected reply %v", res)
	}

	userID, _ := res[0].(string)
	if userID == "" {
		return nil, fmt.Errorf("reserve 2fa attempt: %w", core.ErrNotFound)
	}

	attempts, ok := res[1].(int64)
	if !ok {
		return nil, fmt.Errorf("reserve 2fa attempt: bad attempt count %v", res[1])
	}

	return &TwoFactorChallenge{UserID: userID, Attempts: int(attempts)}, nil
}

func (s *redisTokenStore) DeleteChallenge(ctx context.Context, token string) error {
	key := challengePrefix + core.HashToken(token)

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete 2fa challenge: %w", err)
	}

	return nil
}
