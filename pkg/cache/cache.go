// Package cache 提供基于 Redis 的读穿缓存。
// 缓存是严格的 best-effort：后端缺失或出错时所有操作降级为未命中/空操作，
// 绝不向调用方返回错误。
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"taible-storage-go/pkg/log"
)

// keyPrefix 是所有缓存键的公共前缀。
const keyPrefix = "taible"

// Store 抽象了缓存后端的基本操作，便于在测试中替换为假实现。
type Store interface {
	// Get 返回缓存值。未命中或后端不可用时第二个返回值为 false。
	Get(ctx context.Context, key string) (string, bool)
	// Set 写入缓存值。ttl <= 0 表示不过期。返回是否写入成功。
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool
	// Delete 删除缓存键，返回是否删除了已存在的键。
	Delete(ctx context.Context, key string) bool
	// Exists 判断缓存键是否存在。
	Exists(ctx context.Context, key string) bool
}

// RedisStore 是 Store 的 Redis 实现。client 为 nil 时所有操作降级。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建一个 RedisStore。允许传入 nil 客户端。
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get 获取并反序列化缓存值。
// 值在写入时被 JSON 编码；解码失败时降级为返回原始文本而不是报错。
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	if s == nil || s.client == nil {
		return "", false
	}

	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Errorf("Redis 获取缓存失败 %s: %v", key, err)
		}
		return "", false
	}

	var value string
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw, true
	}
	return value, true
}

// Set 将值 JSON 编码后写入缓存。
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	if s == nil || s.client == nil {
		return false
	}

	serialized, err := json.Marshal(value)
	if err != nil {
		log.Errorf("缓存值序列化失败 %s: %v", key, err)
		return false
	}

	if ttl > 0 {
		err = s.client.SetEX(ctx, key, serialized, ttl).Err()
	} else {
		err = s.client.Set(ctx, key, serialized, 0).Err()
	}
	if err != nil {
		log.Errorf("Redis 设置缓存失败 %s: %v", key, err)
		return false
	}
	return true
}

// Delete 删除缓存键。
func (s *RedisStore) Delete(ctx context.Context, key string) bool {
	if s == nil || s.client == nil {
		return false
	}

	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		log.Errorf("Redis 删除缓存失败 %s: %v", key, err)
		return false
	}
	return deleted > 0
}

// Exists 判断缓存键是否存在。
func (s *RedisStore) Exists(ctx context.Context, key string) bool {
	if s == nil || s.client == nil {
		return false
	}

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		log.Errorf("Redis 检查缓存存在失败 %s: %v", key, err)
		return false
	}
	return n > 0
}

// BuildKey 构建确定性的缓存键，格式: taible:{namespace}:{operation}:{参数摘要}。
// 摘要取参数串 MD5 的前 8 位十六进制。截断摘要不抗碰撞，
// 该缓存只能用于非关键的记忆化，不能承载正确性。
func BuildKey(namespace, operation string, args ...interface{}) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, fmt.Sprint(arg))
	}
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	digest := hex.EncodeToString(sum[:])[:8]
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, namespace, operation, digest)
}

// GetOrLoad 是显式的 cache-aside 组合子：命中直接返回缓存值，
// 未命中时执行 loader 并把结果写回缓存（写回失败不影响返回值）。
// store 为 nil 时每次都执行 loader。
func GetOrLoad(ctx context.Context, store Store, key string, ttl time.Duration, loader func() (string, error)) (string, error) {
	if store != nil {
		if value, ok := store.Get(ctx, key); ok {
			log.Debugf("缓存命中: %s", key)
			return value, nil
		}
	}

	value, err := loader()
	if err != nil {
		return "", err
	}

	if store != nil {
		store.Set(ctx, key, value, ttl)
	}
	return value, nil
}
