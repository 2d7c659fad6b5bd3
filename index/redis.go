package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIndex implements Client on Redis. Each committed record lives as JSON
// under obj:<id>; membership sets model:<Model>, rev:<property>:<target>,
// and in:<target> serve forward-by-type, reverse-by-property, and inbound
// scans. Upsert/Delete stage operations in memory and Commit replays them,
// so queries between a save and its commit see the previous projection.
type RedisIndex struct {
	client  *redis.Client
	config  RedisConfig
	pending []pendingOp
	mu      sync.Mutex
}

type pendingOp struct {
	record *Record // nil for deletes
	id     string
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix namespaces all index keys
	Prefix string
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "lattice:",
	}
}

// NewRedisIndex creates a Redis index with custom configuration
func NewRedisIndex(config RedisConfig) (*RedisIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisIndex{client: client, config: config}, nil
}

// NewRedisIndexWithClient creates a Redis index with an existing client
func NewRedisIndexWithClient(client *redis.Client, config RedisConfig) *RedisIndex {
	return &RedisIndex{client: client, config: config}
}

// Close closes the Redis connection
func (r *RedisIndex) Close() error {
	return r.client.Close()
}

func (r *RedisIndex) objKey(id string) string {
	return r.config.Prefix + "obj:" + id
}

func (r *RedisIndex) modelKey(model string) string {
	return r.config.Prefix + "model:" + model
}

func (r *RedisIndex) revKey(property, target string) string {
	return r.config.Prefix + "rev:" + property + ":" + target
}

func (r *RedisIndex) inKey(target string) string {
	return r.config.Prefix + "in:" + target
}

// Upsert stages a record write; it becomes visible at the next Commit
func (r *RedisIndex) Upsert(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("upsert requires a record with an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, pendingOp{record: record, id: record.ID})
	return nil
}

// Delete stages a record removal; it becomes visible at the next Commit
func (r *RedisIndex) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, pendingOp{id: id})
	return nil
}

// Commit replays all staged operations against Redis. On failure the
// unapplied tail stays staged, so a retried Commit resumes where it stopped.
func (r *RedisIndex) Commit(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.pending) > 0 {
		op := r.pending[0]
		var err error
		if op.record != nil {
			err = r.applyUpsert(ctx, op.record)
		} else {
			err = r.applyDelete(ctx, op.id)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCommitFailed, err)
		}
		r.pending = r.pending[1:]
	}
	return nil
}

// Pending returns the number of staged, uncommitted operations
func (r *RedisIndex) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *RedisIndex) applyUpsert(ctx context.Context, record *Record) error {
	old, err := r.fetch(ctx, record.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	pipe := r.client.TxPipeline()
	if old != nil {
		r.removeMemberships(pipe, old)
	}
	pipe.Set(ctx, r.objKey(record.ID), data, 0)
	pipe.SAdd(ctx, r.modelKey(record.Model), record.ID)
	for property, targets := range record.Edges {
		for _, target := range targets {
			pipe.SAdd(ctx, r.revKey(property, target), record.ID)
			pipe.SAdd(ctx, r.inKey(target), record.ID)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisIndex) applyDelete(ctx context.Context, id string) error {
	old, err := r.fetch(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		// Nothing indexed for this id; removal of an unindexed object is
		// not an index error.
		return nil
	}

	pipe := r.client.TxPipeline()
	r.removeMemberships(pipe, old)
	pipe.Del(ctx, r.objKey(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisIndex) removeMemberships(pipe redis.Pipeliner, record *Record) {
	ctx := context.Background()
	pipe.SRem(ctx, r.modelKey(record.Model), record.ID)
	for property, targets := range record.Edges {
		for _, target := range targets {
			pipe.SRem(ctx, r.revKey(property, target), record.ID)
			pipe.SRem(ctx, r.inKey(target), record.ID)
		}
	}
}

// fetch loads a committed record, or nil if none is indexed
func (r *RedisIndex) fetch(ctx context.Context, id string) (*Record, error) {
	data, err := r.client.Get(ctx, r.objKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return &record, nil
}

// Query returns committed records of the given model holding an edge
// (property, target). An empty model matches any type. Results come back in
// id order; callers must not assume more than a stable ordering.
func (r *RedisIndex) Query(ctx context.Context, model, property, target string) ([]*Record, error) {
	ids, err := r.client.SMembers(ctx, r.revKey(property, target)).Result()
	if err != nil {
		return nil, err
	}
	return r.load(ctx, ids, model)
}

// QueryInbound returns every committed record with at least one edge
// pointing at the target, regardless of predicate or type.
func (r *RedisIndex) QueryInbound(ctx context.Context, target string) ([]*Record, error) {
	ids, err := r.client.SMembers(ctx, r.inKey(target)).Result()
	if err != nil {
		return nil, err
	}
	return r.load(ctx, ids, "")
}

func (r *RedisIndex) load(ctx context.Context, ids []string, model string) ([]*Record, error) {
	sort.Strings(ids)
	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		record, err := r.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		if record == nil {
			// Set membership can outlive the record between pipeline steps;
			// treat as absent.
			continue
		}
		if model != "" && record.Model != model {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
