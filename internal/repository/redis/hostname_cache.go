package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type HostnameCache struct {
	client *redis.Client
}

func NewHostnameCache(client *redis.Client) *HostnameCache {
	return &HostnameCache{client: client}
}

func HostnamesKey(workspaceID string) string {
	return fmt.Sprintf("allowedHostnames:%s", workspaceID)
}

// GetAllowedHostnames reports found=false on a cache miss. An empty list
// that was cached is still a hit.
func (c *HostnameCache) GetAllowedHostnames(ctx context.Context, workspaceID string) ([]string, bool, error) {
	data, err := c.client.Get(ctx, HostnamesKey(workspaceID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var hostnames []string
	if err := json.Unmarshal([]byte(data), &hostnames); err != nil {
		return nil, false, fmt.Errorf("failed to decode allowed hostnames for %s: %w", workspaceID, err)
	}

	return hostnames, true, nil
}

func (c *HostnameCache) SetAllowedHostnames(ctx context.Context, workspaceID string, hostnames []string, ttl time.Duration) error {
	if hostnames == nil {
		hostnames = []string{}
	}

	data, err := json.Marshal(hostnames)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, HostnamesKey(workspaceID), data, ttl).Err()
}
