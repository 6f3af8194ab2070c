package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicwise/clinic-backend/internal/models"
)

const (
	rolePermissionsPrefix = "role_permissions:"
	// emptyMember marks a cached role that holds no permissions, so an empty
	// grant is distinguishable from a miss
	emptyMember = ""
)

// ErrCacheMiss is returned when a role has no cached entry
var ErrCacheMiss = errors.New("cache miss")

// PermissionCache caches role permission sets in Redis
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPermissionCache creates a cache whose entries expire after ttl
func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{client: client, ttl: ttl}
}

func rolePermissionsKey(roleID string) string {
	return rolePermissionsPrefix + roleID
}

// Get returns the cached permission set for the role or ErrCacheMiss
func (c *PermissionCache) Get(ctx context.Context, roleID string) (models.PermissionSet, error) {
	members, err := c.client.SMembers(ctx, rolePermissionsKey(roleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached permissions: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrCacheMiss
	}
	return models.NewPermissionSet(members...), nil
}

// Set replaces the cached permission set for the role
func (c *PermissionCache) Set(ctx context.Context, roleID string, permissions []string) error {
	key := rolePermissionsKey(roleID)

	members := make([]any, 0, len(permissions)+1)
	members = append(members, emptyMember)
	for _, p := range permissions {
		members = append(members, p)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache permissions: %w", err)
	}
	return nil
}

// Invalidate drops the cached permission set for the role
func (c *PermissionCache) Invalidate(ctx context.Context, roleID string) error {
	if err := c.client.Del(ctx, rolePermissionsKey(roleID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached permissions: %w", err)
	}
	return nil
}
