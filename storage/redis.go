package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cyberpaste/cyberpaste/models"
)

const redisKeyPrefix = "paste:"

// incrViewsScript bumps the view counter only when the key still exists, so
// a concurrent expiry or delete cannot be resurrected as a counter-only key.
var incrViewsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('HINCRBY', KEYS[1], 'views', 1)
end
return -1
`)

// RedisStore implements PasteStore using Redis. Each paste is one hash: the
// "meta" field holds the JSON record, the "views" field is the counter
// (HINCRBY keeps it atomic). TTLs map onto Redis key expiry, so Redis is
// its own sweeper and ScanExpired has nothing to report.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore creates a new Redis storage backend from a redis:// URL.
func NewRedisStore(url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, timeout: 5 * time.Second}, nil
}

// Insert saves a paste. HSetNX on the meta field rejects duplicates.
func (r *RedisStore) Insert(ctx context.Context, paste *models.Paste) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	meta := paste.Clone()
	meta.Views = 0 // counter lives in its own hash field
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	key := redisKeyPrefix + paste.ID
	ok, err := r.client.HSetNX(ctx, key, "meta", data).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateID
	}
	if err := r.client.HSetNX(ctx, key, "views", strconv.FormatInt(paste.Views, 10)).Err(); err != nil {
		return err
	}
	if paste.TTLSeconds > 0 {
		return r.client.Expire(ctx, key, time.Duration(paste.TTLSeconds)*time.Second).Err()
	}
	return nil
}

// Get retrieves a paste by id, or (nil, nil) when absent or expired away.
func (r *RedisStore) Get(ctx context.Context, id string) (*models.Paste, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return nil, err
	}
	meta, ok := fields["meta"]
	if !ok {
		return nil, nil
	}

	var paste models.Paste
	if err := json.Unmarshal([]byte(meta), &paste); err != nil {
		return nil, err
	}
	if views, ok := fields["views"]; ok {
		if n, err := strconv.ParseInt(views, 10, 64); err == nil {
			paste.Views = n
		}
	}
	return &paste, nil
}

// Exists checks if a paste exists by id.
func (r *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.Exists(ctx, redisKeyPrefix+id).Result()
	return n > 0, err
}

// Delete removes a paste. DEL on an absent key is already a no-op.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}

// IncrementViews bumps the view counter and returns the new count.
func (r *RedisStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := incrViewsScript.Run(ctx, r.client, []string{redisKeyPrefix + id}).Int64()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// CountAll counts paste keys with a cursor scan.
func (r *RedisStore) CountAll(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var total int64
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 500).Result()
		if err != nil {
			return 0, err
		}
		total += int64(len(keys))
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// ScanExpired returns nil: Redis expires keys natively, there is never a
// backlog of dead records to report.
func (r *RedisStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	return nil, nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
