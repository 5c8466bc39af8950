package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dhkiller350/cyber-chat/internal/server/config"
)

// RedisStore backs moderation state with redis so bans and cooldowns
// survive restarts and are shared between instances. Usernames are
// normalized into the keys; the ban hash remembers the casing recorded
// at ban time for display.
//
// Keys:
//
//	<prefix>:bans                 hash: normalized username -> display name
//	<prefix>:ban:<username>       ban reason
//	<prefix>:cooldown:<username>  expires with the cooldown
//	<prefix>:mute:<username>      expires with the mute
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.KeyPrefix}, nil
}

func (s *RedisStore) bansKey() string { return s.prefix + ":bans" }

func (s *RedisStore) key(kind, username string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, normalize(username))
}

func (s *RedisStore) Ban(ctx context.Context, username, reason string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.bansKey(), normalize(username), username)
	pipe.Set(ctx, s.key("ban", username), reason, 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Unban(ctx context.Context, username string) (bool, error) {
	removed, err := s.client.HDel(ctx, s.bansKey(), normalize(username)).Result()
	if err != nil {
		return false, err
	}
	if err := s.client.Del(ctx, s.key("ban", username)).Err(); err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (s *RedisStore) BanReason(ctx context.Context, username string) (string, bool, error) {
	reason, err := s.client.Get(ctx, s.key("ban", username)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return reason, true, nil
}

func (s *RedisStore) Banned(ctx context.Context) ([]string, error) {
	names, err := s.client.HVals(ctx, s.bansKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisStore) SetCooldown(ctx context.Context, username string, d time.Duration) error {
	return s.client.Set(ctx, s.key("cooldown", username), "1", d).Err()
}

func (s *RedisStore) CooldownRemaining(ctx context.Context, username string) (time.Duration, error) {
	return s.remaining(ctx, s.key("cooldown", username))
}

func (s *RedisStore) Mute(ctx context.Context, username string, d time.Duration) error {
	return s.client.Set(ctx, s.key("mute", username), "1", d).Err()
}

func (s *RedisStore) MuteRemaining(ctx context.Context, username string) (time.Duration, error) {
	return s.remaining(ctx, s.key("mute", username))
}

func (s *RedisStore) remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 { // -1 no expiry, -2 no key
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
