package cache

import (
	"context"
	"discuss/config"
	"discuss/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisCache struct {
	client     *redis.Client
	profileTTL time.Duration
}

func New(cfg *config.Config) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: rdb, profileTTL: cfg.ProfileCacheTTL}, nil
}

func ThreadKey(postID models.PostID) string {
	return fmt.Sprintf("thread:post:%d", postID)
}

func ProfileKey(id models.UserID) string {
	return fmt.Sprintf("profile:user:%d", id)
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// SetWithRandomTTL 在基础 TTL 上加 ±10% 抖动，避免同一批 key 同时过期
func (c *RedisCache) SetWithRandomTTL(ctx context.Context, key string, value interface{}, baseTTL time.Duration) error {
	return c.client.Set(ctx, key, value, jitter(baseTTL)).Err()
}

func jitter(baseTTL time.Duration) time.Duration {
	if baseTTL < 10 {
		return baseTTL
	}
	actual := baseTTL + time.Duration(rand.Int63n(int64(baseTTL/5))-int64(baseTTL/10))
	if actual <= 0 {
		return baseTTL
	}
	return actual
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// GetJSON 读取并解码，key 不存在时返回 false
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// 脏数据直接删掉，下次回源
		_ = c.client.Del(ctx, key).Err()
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) SetJSONWithRandomTTL(ctx context.Context, key string, v interface{}, baseTTL time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.SetWithRandomTTL(ctx, key, raw, baseTTL)
}

// GetProfile 作为 profile.Resolver 的二级缓存
func (c *RedisCache) GetProfile(ctx context.Context, id models.UserID) (models.Profile, bool) {
	var p models.Profile
	ok, err := c.GetJSON(ctx, ProfileKey(id), &p)
	if err != nil {
		zap.L().Warn("profile cache read failed", zap.Uint("user_id", uint(id)), zap.Error(err))
	}
	return p, ok
}

func (c *RedisCache) SetProfile(ctx context.Context, p models.Profile) {
	if err := c.SetJSONWithRandomTTL(ctx, ProfileKey(p.ID), p, c.profileTTL); err != nil {
		zap.L().Warn("profile cache write failed", zap.Uint("user_id", uint(p.ID)), zap.Error(err))
	}
}

// AllowRequest 固定窗口计数限流
func (c *RedisCache) AllowRequest(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	// 第一次 INCR 时设置过期
	const script = `
        local current = redis.call("INCR", KEYS[1])
        if tonumber(current) == 1 then
            redis.call("EXPIRE", KEYS[1], ARGV[1])
        end
        return current
    `

	count, err := c.client.Eval(ctx, script, []string{key}, int(window.Seconds())).Int()
	if err != nil {
		return true, err
	}
	return count <= limit, nil
}

// BlacklistToken 登出后 token 在剩余有效期内不可用
func (c *RedisCache) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	return c.Set(ctx, "blacklist:"+jti, "1", ttl)
}

func (c *RedisCache) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, "blacklist:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis error checking blacklist: %w", err)
	}
	return n > 0, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
