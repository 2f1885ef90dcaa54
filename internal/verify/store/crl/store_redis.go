package crl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pa-gateway/internal/verify/models"
	"pa-gateway/internal/verify/ports"
	"pa-gateway/pkg/platform/sentinel"
)

// Redis key prefix for cached revocation lists.
const crlKeyPrefix = "crl:"

// DefaultCacheTTL bounds how long a cached list is served when the list
// itself declares no nextUpdate.
const DefaultCacheTTL = time.Hour

// crlDocument is the cache representation of a revocation list. Serials are a
// slice because JSON has no set type.
type crlDocument struct {
	IssuerDN       string    `json:"issuer_dn"`
	CountryCode    string    `json:"country_code"`
	ThisUpdate     time.Time `json:"this_update"`
	NextUpdate     time.Time `json:"next_update"`
	RevokedSerials []string  `json:"revoked_serials"`
}

// RedisCache is a read-through cache in front of a slower CrlStore (PKD
// mirror, database, HTTP distribution point). Cache problems degrade to the
// source; source problems surface to the revocation checker, which fails
// open.
type RedisCache struct {
	client *redis.Client
	source ports.CrlStore
	ttl    time.Duration
	logger *slog.Logger
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithCacheTTL overrides the fallback TTL for lists without a nextUpdate.
func WithCacheTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger attaches a structured logger.
func WithCacheLogger(logger *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRedisCache constructs the cache over the given source store.
func NewRedisCache(client *redis.Client, source ports.CrlStore, opts ...RedisCacheOption) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if source == nil {
		return nil, fmt.Errorf("source crl store is required")
	}
	c := &RedisCache{
		client: client,
		source: source,
		ttl:    DefaultCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FindByIssuer serves from cache when possible and falls through to the
// source otherwise, caching the fresh list until its nextUpdate.
func (c *RedisCache) FindByIssuer(ctx context.Context, issuerDN, countryCode string) (*models.RevocationList, error) {
	key := cacheKey(issuerDN, countryCode)

	if list, ok := c.readCache(ctx, key); ok {
		return list, nil
	}

	list, err := c.source.FindByIssuer(ctx, issuerDN, countryCode)
	if err != nil {
		if !errors.Is(err, sentinel.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("crl source lookup: %w", err)
	}
	if list == nil {
		return nil, nil
	}

	c.writeCache(ctx, key, list)
	return list, nil
}

func (c *RedisCache) readCache(ctx context.Context, key string) (*models.RevocationList, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "crl cache read failed", "key", key, "error", err)
		return nil, false
	}

	var doc crlDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		c.logger.WarnContext(ctx, "crl cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return fromDocument(doc), true
}

func (c *RedisCache) writeCache(ctx context.Context, key string, list *models.RevocationList) {
	payload, err := json.Marshal(toDocument(list))
	if err != nil {
		c.logger.WarnContext(ctx, "crl cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, c.cacheTTL(list)).Err(); err != nil {
		c.logger.WarnContext(ctx, "crl cache write failed", "key", key, "error", err)
	}
}

// cacheTTL keeps the cache entry alive no longer than the list's own
// validity, so a stale list expires from cache on its own schedule.
func (c *RedisCache) cacheTTL(list *models.RevocationList) time.Duration {
	if list.NextUpdate.IsZero() {
		return c.ttl
	}
	until := time.Until(list.NextUpdate)
	if until <= 0 || until > c.ttl {
		return c.ttl
	}
	return until
}

func cacheKey(issuerDN, countryCode string) string {
	return crlKeyPrefix + countryCode + ":" + issuerDN
}

func toDocument(list *models.RevocationList) crlDocument {
	serials := make([]string, 0, len(list.RevokedSerials))
	for serial := range list.RevokedSerials {
		serials = append(serials, serial)
	}
	return crlDocument{
		IssuerDN:       list.IssuerDN,
		CountryCode:    list.CountryCode,
		ThisUpdate:     list.ThisUpdate,
		NextUpdate:     list.NextUpdate,
		RevokedSerials: serials,
	}
}

func fromDocument(doc crlDocument) *models.RevocationList {
	serials := make(map[string]struct{}, len(doc.RevokedSerials))
	for _, serial := range doc.RevokedSerials {
		serials[serial] = struct{}{}
	}
	return &models.RevocationList{
		IssuerDN:       doc.IssuerDN,
		CountryCode:    doc.CountryCode,
		ThisUpdate:     doc.ThisUpdate,
		NextUpdate:     doc.NextUpdate,
		RevokedSerials: serials,
	}
}
