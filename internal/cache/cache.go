package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// Store caches successful resolutions keyed by origin and criteria.
type Store interface {
	Get(ctx context.Context, key string) (*types.Resolution, bool, error)
	Set(ctx context.Context, key string, res *types.Resolution) error
	Close() error
}

// Key derives the cache key for an origin under the given criteria. Origins
// resolve differently per criteria set, so both go into the digest.
func Key(origin string, criteria types.Criteria) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(origin) + "\n" + criteria.Fingerprint()))
	return hex.EncodeToString(sum[:16])
}

// New builds the configured cache backend. A "none" or empty backend returns
// a nil store; callers treat nil as cache-off.
func New(cfg config.CacheConfig) (Store, error) {
	ttl := cfg.TTL.Or(6 * time.Hour)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(ttl), nil
	case "redis":
		return NewRedis(cfg.Redis, ttl)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
