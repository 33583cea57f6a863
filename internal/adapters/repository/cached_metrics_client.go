package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

var _ domain.UpstreamClient = (*CachedMetricsClient)(nil)

// CachedMetricsClient is a read-through cache in front of the upstream client. Only
// successful, well-formed bodies are stored; failures always reach the caller.
type CachedMetricsClient struct {
	next  domain.UpstreamClient
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedMetricsClient(next domain.UpstreamClient, cache *redis.Client, ttl time.Duration) *CachedMetricsClient {
	return &CachedMetricsClient{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

func (r *CachedMetricsClient) cacheKey(userID string, req domain.UpstreamRequest) string {
	if req.Range == nil {
		return fmt.Sprintf("metrics:%s:%s", userID, req.Family)
	}
	return fmt.Sprintf("metrics:%s:%s:%s:%s", userID, req.Family, req.Range.StartString(), req.Range.EndString())
}

func (r *CachedMetricsClient) Fetch(ctx context.Context, sess *domain.Session, req domain.UpstreamRequest) (json.RawMessage, error) {
	if sess == nil || sess.ProviderUserID == "" {
		return r.next.Fetch(ctx, sess, req)
	}

	key := r.cacheKey(sess.ProviderUserID, req)

	val, err := r.cache.Get(ctx, key).Bytes()
	if err == nil {
		if json.Valid(val) {
			return json.RawMessage(val), nil
		}

		log.Printf("[CACHE] Corrupted data for key %s, cleaning up", key)
		r.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	body, err := r.next.Fetch(ctx, sess, req)
	if err != nil {
		return nil, err
	}

	if setErr := r.cache.Set(ctx, key, []byte(body), r.ttl).Err(); setErr != nil {
		log.Printf("[CACHE] Redis set error: %v", setErr)
	}

	return body, nil
}

// Invalidate drops every cached response of one user, e.g. on logout.
func (r *CachedMetricsClient) Invalidate(ctx context.Context, userID string) {
	iter := r.cache.Scan(ctx, 0, fmt.Sprintf("metrics:%s:*", userID), 100).Iterator()
	for iter.Next(ctx) {
		if err := r.cache.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("[CACHE] Failed to invalidate %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate for user %s: %v", userID, err)
	}
}
