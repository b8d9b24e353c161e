package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/isfportal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps refresh tokens and revoked access token IDs in redis.
type TokenStore interface {
	SaveRefresh(ctx context.Context, token string, accountID uuid.UUID, ttl time.Duration) error
	// ConsumeRefresh returns the owner and deletes the token; a token can be
	// used once.
	ConsumeRefresh(ctx context.Context, token string) (uuid.UUID, error)
	RevokeAll(ctx context.Context, accountID uuid.UUID) error
	DenyAccess(ctx context.Context, jti string, ttl time.Duration) error
	IsDenied(ctx context.Context, jti string) (bool, error)
}

type redisTokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) TokenStore {
	return &redisTokenStore{rdb: rdb}
}

func refreshKey(token string) string {
	return "auth:refresh:" + token
}

func accountTokensKey(accountID uuid.UUID) string {
	return "auth:refresh:account:" + accountID.String()
}

func denyKey(jti string) string {
	return "auth:deny:" + jti
}

func (s *redisTokenStore) SaveRefresh(ctx context.Context, token string, accountID uuid.UUID, ttl time.Duration) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, refreshKey(token), accountID.String(), ttl)
	pipe.SAdd(ctx, accountTokensKey(accountID), token)
	pipe.Expire(ctx, accountTokensKey(accountID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (s *redisTokenStore) ConsumeRefresh(ctx context.Context, token string) (uuid.UUID, error) {
	owner, err := s.rdb.GetDel(ctx, refreshKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, apperror.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to read refresh token: %w", err)
	}

	accountID, err := uuid.Parse(owner)
	if err != nil {
		return uuid.Nil, apperror.ErrNotFound
	}

	s.rdb.SRem(ctx, accountTokensKey(accountID), token)
	return accountID, nil
}

func (s *redisTokenStore) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	tokens, err := s.rdb.SMembers(ctx, accountTokensKey(accountID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to list refresh tokens: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, refreshKey(t))
	}
	keys = append(keys, accountTokensKey(accountID))

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *redisTokenStore) DenyAccess(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, denyKey(jti), "1", ttl).Err()
}

func (s *redisTokenStore) IsDenied(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
