// README: Redis-backed conversation history (RPUSH + LTRIM + EXPIRE per append).
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "conversation:%s:turns"

type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{redis: client, ttl: ttl}
}

func historyKey(conversationID string) string {
	return fmt.Sprintf(historyKeyPrefix, conversationID)
}

func (s *RedisStore) Append(ctx context.Context, conversationID string, turns ...Turn) error {
	if conversationID == "" {
		return ErrEmptyID
	}
	if len(turns) == 0 {
		return nil
	}
	values := make([]any, len(turns))
	for i, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		values[i] = b
	}
	key := historyKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -MaxTurns, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history %s: %w", conversationID, err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, conversationID string, limit int) ([]Turn, error) {
	if conversationID == "" {
		return nil, ErrEmptyID
	}
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.redis.LRange(ctx, historyKey(conversationID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", conversationID, err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			// skip entries written by an older format
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}
