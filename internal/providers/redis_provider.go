package providers

import (
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisProvider returns a client for the run ledger. The ledger is best
// effort, so the client fails fast instead of blocking the run.
func NewRedisProvider(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaxRetries:   -1,
	})
}
