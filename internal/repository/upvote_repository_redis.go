package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// toggleScript flips membership atomically and returns 1 when the mark is now set.
var toggleScript = redis.NewScript(`
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
    redis.call("SREM", KEYS[1], ARGV[1])
    return 0
end
redis.call("SADD", KEYS[1], ARGV[1])
return 1
`)

type redisUpvoteRepository struct {
	client redis.Cmdable
	prefix string
}

// NewRedisUpvoteRepository stores one set of complaint ids per viewer.
func NewRedisUpvoteRepository(client redis.Cmdable, prefix string) UpvoteRepository {
	if prefix == "" {
		prefix = "urbispulse:upvotes"
	}
	return &redisUpvoteRepository{client: client, prefix: prefix}
}

func (r *redisUpvoteRepository) key(viewerID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, viewerID)
}

func (r *redisUpvoteRepository) Toggle(ctx context.Context, viewerID, complaintID string) (bool, error) {
	marked, err := toggleScript.Run(ctx, r.client, []string{r.key(viewerID)}, complaintID).Int()
	if err != nil {
		return false, err
	}
	return marked == 1, nil
}

func (r *redisUpvoteRepository) Has(ctx context.Context, viewerID, complaintID string) (bool, error) {
	return r.client.SIsMember(ctx, r.key(viewerID), complaintID).Result()
}

func (r *redisUpvoteRepository) MarkedSet(ctx context.Context, viewerID string, complaintIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(complaintIDs))
	if len(complaintIDs) == 0 {
		return out, nil
	}
	members := make([]interface{}, len(complaintIDs))
	for i, id := range complaintIDs {
		members[i] = id
	}
	flags, err := r.client.SMIsMember(ctx, r.key(viewerID), members...).Result()
	if err != nil {
		return nil, err
	}
	for i, set := range flags {
		if set {
			out[complaintIDs[i]] = true
		}
	}
	return out, nil
}
