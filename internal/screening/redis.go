package screening

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ducnm/chainscreen/internal/core/domain"
)

// RedisConfig holds Redis connection configuration for the watchlist.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// RedisWatchlist reads watchlist membership from Redis sets so the data
// can be refreshed out of band. Set layout:
//
//	watchlist:sanctions       lowercased addresses
//	watchlist:mixers:<chain>  lowercased per-chain mixer contracts
//	watchlist:mixers:other    lowercased cross-chain mixer addresses
//	watchlist:privacy         uppercased asset symbols
//
// Lookup failures log a warning and report non-membership; a Redis
// outage must degrade screening coverage, not abort a sync.
type RedisWatchlist struct {
	rdb     *redis.Client
	timeout time.Duration
}

// NewRedisWatchlist connects to Redis and verifies the connection.
func NewRedisWatchlist(cfg RedisConfig) (*RedisWatchlist, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisWatchlist{rdb: rdb, timeout: 2 * time.Second}, nil
}

// Close closes the Redis connection.
func (w *RedisWatchlist) Close() error {
	return w.rdb.Close()
}

const (
	sanctionsKey   = "watchlist:sanctions"
	otherMixersKey = "watchlist:mixers:other"
	privacyKey     = "watchlist:privacy"
)

func mixersKey(chain domain.ChainID) string {
	return fmt.Sprintf("watchlist:mixers:%s", chain)
}

func (w *RedisWatchlist) member(key, value string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	ok, err := w.rdb.SIsMember(ctx, key, value).Result()
	if err != nil {
		slog.Warn("watchlist lookup failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (w *RedisWatchlist) IsSanctioned(address string) bool {
	return w.member(sanctionsKey, strings.ToLower(address))
}

func (w *RedisWatchlist) IsMixer(address string, chain domain.ChainID) bool {
	return w.member(mixersKey(chain), strings.ToLower(address))
}

func (w *RedisWatchlist) IsKnownMixer(address string) bool {
	return w.member(otherMixersKey, strings.ToLower(address))
}

func (w *RedisWatchlist) IsPrivacyAsset(symbol string) bool {
	normalized := strings.ToUpper(symbol)
	if base, ok := wrappedPrivacyAssets[normalized]; ok {
		normalized = base
	}
	return w.member(privacyKey, normalized)
}
