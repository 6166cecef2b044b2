package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	pkgerrors "github.com/pkg/errors"

	"rincewind/logger"
)

const recordTTL = 5 * time.Minute

//RecordCache keeps raw record data in Redis across requests, keyed by
//resource and stringified key. All operations are best-effort: a cache
//failure is logged and degraded to a miss, it never fails the lookup that
//triggered it.
type RecordCache struct {
	client *redis.Client
}

func NewRecordCache(redisUrl string) (*RecordCache, error) {
	options, err := redis.ParseURL(redisUrl)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "parsing redis url")
	}
	return &RecordCache{client: redis.NewClient(options)}, nil
}

func cacheKey(resource string, key string) string {
	return "record:" + resource + ":" + key
}

func (cache *RecordCache) Get(resource string, key string) (map[string]interface{}, bool) {
	content, err := cache.client.Get(context.Background(), cacheKey(resource, key)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("Record cache lookup for '%s/%s' failed: %s", resource, key, err.Error())
		return nil, false
	}
	data := make(map[string]interface{})
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		logger.Warn("Record cache entry for '%s/%s' is malformed: %s", resource, key, err.Error())
		return nil, false
	}
	return data, true
}

func (cache *RecordCache) Set(resource string, key string, data map[string]interface{}) {
	content, err := json.Marshal(data)
	if err != nil {
		logger.Warn("Record cache entry for '%s/%s' can't be encoded: %s", resource, key, err.Error())
		return
	}
	if err := cache.client.Set(context.Background(), cacheKey(resource, key), content, recordTTL).Err(); err != nil {
		logger.Warn("Record cache write for '%s/%s' failed: %s", resource, key, err.Error())
	}
}

func (cache *RecordCache) Invalidate(resource string, key string) {
	if err := cache.client.Del(context.Background(), cacheKey(resource, key)).Err(); err != nil {
		logger.Warn("Record cache invalidation for '%s/%s' failed: %s", resource, key, err.Error())
	}
}
