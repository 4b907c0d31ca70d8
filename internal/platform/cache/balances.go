package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andino-erp/andino-erp/internal/treasury"
)

const balancesVersionKey = "treasury:balances:version"

// Balances is a versioned Redis cache for the treasury balance summary.
// Readers fetch under the current version key; writers invalidate by
// bumping the version, leaving stale entries to expire with the TTL.
type Balances struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBalances instantiates the balances cache helper.
func NewBalances(client *redis.Client, ttl time.Duration) *Balances {
	return &Balances{client: client, ttl: ttl}
}

func (c *Balances) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, balancesVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, balancesVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Balances) key(ctx context.Context, orgID int64) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("treasury:balances:%d:%d", orgID, ver), nil
}

// GetBalances loads the cached summary for one organization.
func (c *Balances) GetBalances(ctx context.Context, orgID int64) ([]treasury.CachedBalance, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	key, err := c.key(ctx, orgID)
	if err != nil {
		return nil, false, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var balances []treasury.CachedBalance
	if err := json.Unmarshal(payload, &balances); err != nil {
		return nil, false, err
	}
	return balances, true, nil
}

// SetBalances stores the summary under the current version key.
func (c *Balances) SetBalances(ctx context.Context, orgID int64, balances []treasury.CachedBalance) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(ctx, orgID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(balances)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate bumps the global version so every organization's cached
// summary is abandoned. Payment postings call this after commit.
func (c *Balances) Invalidate(ctx context.Context, orgID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, balancesVersionKey).Err()
}
