package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"game_gate_backend/internal/model"

	"github.com/go-redis/redis/v8"
)

const questionCachePrefix = "game_gate:question:"

// CacheKey 题目缓存的复合键
type CacheKey struct {
	QuestionID uint
	UserID     uint
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s%d:user:%d", questionCachePrefix, k.QuestionID, k.UserID)
}

// QuestionCache 带 TTL 的题目缓存。Get 与 Delete 是两个独立操作。
type QuestionCache interface {
	Put(ctx context.Context, key CacheKey, record *model.CachedQuestion, ttl time.Duration) error
	// Get 未命中或已过期时返回 (nil, false, nil)
	Get(ctx context.Context, key CacheKey) (*model.CachedQuestion, bool, error)
	Delete(ctx context.Context, key CacheKey) error
}

type memoryEntry struct {
	record    model.CachedQuestion
	expiresAt time.Time
}

// MemoryQuestionCache 单实例部署使用的进程内缓存
type MemoryQuestionCache struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[CacheKey]memoryEntry
	puts    int
}

func NewMemoryQuestionCache() *MemoryQuestionCache {
	return &MemoryQuestionCache{
		Now:     time.Now,
		entries: make(map[CacheKey]memoryEntry),
	}
}

const memoryPruneEvery = 256

func (c *MemoryQuestionCache) Put(_ context.Context, key CacheKey, record *model.CachedQuestion, ttl time.Duration) error {
	if record == nil {
		return errors.New("nil cached question")
	}
	now := c.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{record: cloneCachedQuestion(record), expiresAt: now.Add(ttl)}

	// 过期条目在写入时顺带清理，不启动后台协程
	c.puts++
	if c.puts%memoryPruneEvery == 0 {
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	return nil
}

func (c *MemoryQuestionCache) Get(_ context.Context, key CacheKey) (*model.CachedQuestion, bool, error) {
	now := c.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	rec := cloneCachedQuestion(&e.record)
	return &rec, true, nil
}

func (c *MemoryQuestionCache) Delete(_ context.Context, key CacheKey) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len 当前条目数（含尚未清理的过期条目）
func (c *MemoryQuestionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cloneCachedQuestion(src *model.CachedQuestion) model.CachedQuestion {
	dst := *src
	dst.Question.Answers = append([]model.AnswerOption(nil), src.Question.Answers...)
	dst.CorrectAnswer.IDs = append([]uint(nil), src.CorrectAnswer.IDs...)
	dst.CorrectAnswer.Texts = append([]string(nil), src.CorrectAnswer.Texts...)
	return dst
}

// RedisQuestionCache 多实例部署使用，依赖 key TTL 过期
type RedisQuestionCache struct {
	Redis *redis.Client
}

func NewRedisQuestionCache(rdb *redis.Client) *RedisQuestionCache {
	return &RedisQuestionCache{Redis: rdb}
}

func (c *RedisQuestionCache) Put(ctx context.Context, key CacheKey, record *model.CachedQuestion, ttl time.Duration) error {
	if record == nil {
		return errors.New("nil cached question")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, key.String(), data, ttl).Err()
}

func (c *RedisQuestionCache) Get(ctx context.Context, key CacheKey) (*model.CachedQuestion, bool, error) {
	val, err := c.Redis.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec model.CachedQuestion
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, false, fmt.Errorf("decode cached question %s: %w", key, err)
	}
	return &rec, true, nil
}

func (c *RedisQuestionCache) Delete(ctx context.Context, key CacheKey) error {
	return c.Redis.Del(ctx, key.String()).Err()
}
