package store

import (
	"context"
	"encoding/json"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps the memories of a user in a list,
// trimmed to the most recent DefaultMaxMemories entries.
// The keys namespace is organized as follows:
// - `/<prefix>/memstore/<userID>/memories` for storing memories

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a store backed by Redis.
func NewRedisStore(client *redis.Client, prefix string) MemoryStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) getRedisMemoriesKey(userID string) string {
	return path.Join(m.prefix, "memstore", userID, "memories")
}

func (m *redisStore) Search(ctx context.Context, query, userID string, limit int) ([]*Memory, error) {
	defer metricskey.PerfMemorySearch.MeasureSince(TimeNowFn(), "redis")
	if err := checkUser(userID); err != nil {
		return nil, searchFailed(ctx, "redis", err)
	}

	data, err := m.client.LRange(ctx, m.getRedisMemoriesKey(userID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, searchFailed(ctx, "redis", errors.Wrap(err, "failed to load memories from Redis"))
	}

	list := make([]*Memory, 0, len(data))
	for _, item := range data {
		var mem Memory
		if err := json.Unmarshal([]byte(item), &mem); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal memory", "err", err.Error())
			continue
		}
		list = append(list, &mem)
	}
	return Rank(query, list, limit), nil
}

func (m *redisStore) AddMessages(ctx context.Context, msgs []llms.Message, userID string) error {
	list, err := NewMemories(msgs, userID)
	if err != nil {
		return addFailed(ctx, "redis", err)
	}
	if len(list) == 0 {
		return nil
	}

	values := make([]any, 0, len(list))
	for _, mem := range list {
		data, err := json.Marshal(mem)
		if err != nil {
			return addFailed(ctx, "redis", errors.Wrap(err, "failed to marshal memory"))
		}
		values = append(values, data)
	}

	key := m.getRedisMemoriesKey(userID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -DefaultMaxMemories, -1)
	if _, err = pipe.Exec(ctx); err != nil {
		return addFailed(ctx, "redis", errors.Wrap(err, "failed to store memories in Redis"))
	}
	return nil
}

func (m *redisStore) Reset(ctx context.Context, userID string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if err := m.client.Del(ctx, m.getRedisMemoriesKey(userID)).Err(); err != nil {
		return errors.Wrap(err, "failed to reset memories in Redis")
	}
	return nil
}
