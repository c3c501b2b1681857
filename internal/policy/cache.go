package policy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// ActiveVersionTTL bounds how stale an evaluation's rule set can be after
// a publish on another instance. Keep it short; moderation decisions record
// the policy version they used, so staleness is visible in the audit trail.
const ActiveVersionTTL = 30 * time.Second

const activeVersionKeyPrefix = "policy:active:"

// ActiveVersionCache is a Redis read-through cache for the active policy
// version lookup that sits on every moderation evaluation. Cache failures
// are reported but callers always fall back to the store.
type ActiveVersionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewActiveVersionCache(client *redis.Client) *ActiveVersionCache {
	return &ActiveVersionCache{client: client, ttl: ActiveVersionTTL}
}

// Get returns the cached active version for the organization. The second
// result is false on miss or cache error.
func (c *ActiveVersionCache) Get(ctx context.Context, orgID id.OrgID) (*Version, bool) {
	payload, err := c.client.Get(ctx, activeVersionKeyPrefix+orgID.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var v Version
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set caches the active version for the organization.
func (c *ActiveVersionCache) Set(ctx context.Context, orgID id.OrgID, version *Version) error {
	payload, err := json.Marshal(version)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeVersionKeyPrefix+orgID.String(), payload, c.ttl).Err()
}

// Invalidate drops the cached entry; called after every publish.
func (c *ActiveVersionCache) Invalidate(ctx context.Context, orgID id.OrgID) error {
	err := c.client.Del(ctx, activeVersionKeyPrefix+orgID.String()).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
