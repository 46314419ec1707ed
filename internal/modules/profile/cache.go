// README: Redis read-through cache for traveler profiles.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	profileKeyPrefix = "profile:%s"
	// Missing profiles are cached too so anonymous users do not hit Postgres every turn.
	missingMarker = "-"
	profileTTL    = 10 * time.Minute
)

type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{redis: client, ttl: profileTTL}
}

func profileKey(userID string) string {
	return fmt.Sprintf(profileKeyPrefix, userID)
}

// Get returns (nil, true, nil) for a cached miss and (nil, false, nil) when nothing is cached.
func (c *Cache) Get(ctx context.Context, userID string) (*Profile, bool, error) {
	val, err := c.redis.Get(ctx, profileKey(userID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if val == missingMarker {
		return nil, true, nil
	}
	var p Profile
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, false, nil
	}
	return &p, true, nil
}

// Set caches p; a nil p caches the miss.
func (c *Cache) Set(ctx context.Context, userID string, p *Profile) error {
	val := missingMarker
	if p != nil {
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		val = string(b)
	}
	return c.redis.Set(ctx, profileKey(userID), val, c.ttl).Err()
}
