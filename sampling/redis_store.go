package sampling

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/teletap/teletap/core"
)

// RedisDeltaStore is a Redis-backed DeltaStore for samplers that must
// survive host restarts without their deltas restarting from zero.
//
// Each counter kind gets its own hash key under the namespace, so the
// per-kind isolation invariant holds across instances sharing one
// Redis database. The wholesale rewrite is a pipelined DEL+HSET; both
// commands travel in one transaction so a concurrent reader never
// observes a half-written snapshot.
type RedisDeltaStore struct {
	client *redis.Client
	key    string
	logger core.Logger
}

// RedisDeltaStoreOptions configures the Redis store
type RedisDeltaStoreOptions struct {
	RedisURL  string
	Kind      string // Counter kind, used as the key suffix
	Namespace string // Key namespace, defaults to "teletap:delta"
	Logger    core.Logger
}

// NewRedisDeltaStore creates a Redis-backed store and verifies the
// connection with a ping.
func NewRedisDeltaStore(opts RedisDeltaStoreOptions) (*RedisDeltaStore, error) {
	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", core.ErrInvalidConfiguration)
	}
	if opts.Kind == "" {
		return nil, fmt.Errorf("counter kind is required: %w", core.ErrInvalidConfiguration)
	}
	if opts.Namespace == "" {
		opts.Namespace = "teletap:delta"
	}
	if opts.Logger == nil {
		opts.Logger = &core.NoOpLogger{}
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		opts.Logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":     err,
			"redis_url": opts.RedisURL,
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", core.ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		opts.Logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error": err,
			"kind":  opts.Kind,
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", core.ErrConnectionFailed)
	}

	store := &RedisDeltaStore{
		client: client,
		key:    opts.Namespace + ":" + opts.Kind,
		logger: opts.Logger,
	}

	store.logger.Info("Redis delta store connected", map[string]interface{}{
		"kind": opts.Kind,
		"key":  store.key,
	})

	return store, nil
}

// Load reads the full prior snapshot from the hash
func (r *RedisDeltaStore) Load(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreFailed, err)
	}

	out := make(map[string]int64, len(raw))
	for name, field := range raw {
		value, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			// A corrupt field is equivalent to an absent prior value
			r.logger.Warn("Discarding corrupt delta entry", map[string]interface{}{
				"key":     r.key,
				"process": name,
				"value":   field,
			})
			continue
		}
		out[name] = value
	}
	return out, nil
}

// Replace rewrites the hash wholesale
func (r *RedisDeltaStore) Replace(ctx context.Context, snapshot map[string]int64) error {
	fields := make(map[string]interface{}, len(snapshot))
	for name, value := range snapshot {
		fields[name] = strconv.FormatInt(value, 10)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key)
	if len(fields) > 0 {
		pipe.HSet(ctx, r.key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreFailed, err)
	}
	return nil
}

// Close releases the Redis connection
func (r *RedisDeltaStore) Close() error {
	return r.client.Close()
}
