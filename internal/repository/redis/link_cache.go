package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/redis/go-redis/v9"
)

type LinkCache struct {
	client *redis.Client
}

func NewLinkCache(client *redis.Client) *LinkCache {
	return &LinkCache{client: client}
}

func LinkKey(linkDomain, key string) string {
	return fmt.Sprintf("linkcache:%s:%s", strings.ToLower(linkDomain), key)
}

func ClickKey(linkDomain, key, ip string) string {
	return fmt.Sprintf("recordClick:%s:%s:%s", strings.ToLower(linkDomain), key, ip)
}

// Lookup fetches the dedup click ID and the cached link in one round trip.
// Missing entries come back as "" and nil. A corrupt link entry is reported
// as an error alongside whatever click ID was found.
func (c *LinkCache) Lookup(ctx context.Context, linkDomain, key, ip string) (string, *domain.CachedLink, error) {
	values, err := c.client.MGet(ctx, ClickKey(linkDomain, key, ip), LinkKey(linkDomain, key)).Result()
	if err != nil {
		return "", nil, fmt.Errorf("failed to mget click and link for %s/%s: %w", linkDomain, key, err)
	}

	var clickID string
	if s, ok := values[0].(string); ok {
		clickID = s
	}

	raw, ok := values[1].(string)
	if !ok {
		return clickID, nil, nil
	}

	var cached domain.CachedLink
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return clickID, nil, fmt.Errorf("failed to decode cached link %s/%s: %w", linkDomain, key, err)
	}

	return clickID, &cached, nil
}

func (c *LinkCache) GetLink(ctx context.Context, linkDomain, key string) (*domain.CachedLink, error) {
	data, err := c.client.Get(ctx, LinkKey(linkDomain, key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached domain.CachedLink
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached link %s/%s: %w", linkDomain, key, err)
	}

	return &cached, nil
}

func (c *LinkCache) SetLink(ctx context.Context, link *domain.Link, ttl time.Duration) error {
	cached, err := domain.NewCachedLink(link)
	if err != nil {
		return err
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, LinkKey(link.Domain, link.Key), data, ttl).Err()
}

func (c *LinkCache) DeleteLink(ctx context.Context, linkDomain, key string) error {
	return c.client.Del(ctx, LinkKey(linkDomain, key)).Err()
}

func (c *LinkCache) SetClickID(ctx context.Context, linkDomain, key, ip, clickID string, ttl time.Duration) error {
	return c.client.Set(ctx, ClickKey(linkDomain, key, ip), clickID, ttl).Err()
}
