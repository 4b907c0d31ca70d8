package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient builds the redis client shared by the balances cache and the
// job inspector. Connectivity is probed by the caller; the balances cache
// degrades to pass-through when redis is unreachable.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 3 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}
