package conformance

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSource loads the conformance list from a Redis list, for
// deployments where the registry backend publishes the list it
// supports.
type RedisSource struct {
	Client *redis.Client
	Key    string

	// Timeout bounds the load operation. Zero means no bound beyond
	// the caller's context.
	Timeout time.Duration
}

// Load reads the full list stored under Key, preserving order.
func (s *RedisSource) Load(ctx context.Context) ([]string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	list, err := s.Client.LRange(ctx, s.Key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conformance list from redis key %s: %w", s.Key, err)
	}
	return list, nil
}
