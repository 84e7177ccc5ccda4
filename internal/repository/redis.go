package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

const defaultRedisPrefix = "graphflow:"

// RedisGraphRepository stores graphs as JSON documents.
//
//	<prefix>graph:<id>       => JSON graph definition
//	<prefix>idx:graphs       => ZSET of graph ids scored by created (unix nanos)
//
// Equal scores sort by member, so listing is ordered by created then id.
type RedisGraphRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisGraphRepository(client *redis.Client, prefix string) *RedisGraphRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisGraphRepository{client: client, prefix: prefix}
}

func (r *RedisGraphRepository) keyGraph(id string) string { return r.prefix + "graph:" + id }
func (r *RedisGraphRepository) keyAll() string           { return r.prefix + "idx:graphs" }

func (r *RedisGraphRepository) Save(ctx context.Context, def *domain.GraphDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.keyGraph(def.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("graph %s already exists", def.ID)
	}
	return r.client.ZAdd(ctx, r.keyAll(), redis.Z{
		Score:  float64(def.Created.UnixNano()),
		Member: def.ID,
	}).Err()
}

func (r *RedisGraphRepository) FindByID(ctx context.Context, id string) (*domain.GraphDefinition, error) {
	data, err := r.client.Get(ctx, r.keyGraph(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
		}
		return nil, err
	}
	return decodeGraph(data)
}

func (r *RedisGraphRepository) FindAll(ctx context.Context) ([]*domain.GraphDefinition, error) {
	ids, err := r.client.ZRange(ctx, r.keyAll(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	docs, err := mget(ctx, r.client, ids, r.keyGraph)
	if err != nil {
		return nil, err
	}
	defs := make([]*domain.GraphDefinition, 0, len(docs))
	for _, data := range docs {
		def, err := decodeGraph(data)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func decodeGraph(data []byte) (*domain.GraphDefinition, error) {
	var def domain.GraphDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &def, nil
}

// RedisRunRepository stores runs as JSON documents.
//
//	<prefix>run:<id>             => JSON run record
//	<prefix>idx:runs:<graph_id>  => ZSET of run ids scored by created (unix nanos)
type RedisRunRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRunRepository(client *redis.Client, prefix string) *RedisRunRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRunRepository{client: client, prefix: prefix}
}

func (r *RedisRunRepository) keyRun(id string) string            { return r.prefix + "run:" + id }
func (r *RedisRunRepository) keyGraphRuns(graphID string) string { return r.prefix + "idx:runs:" + graphID }

func (r *RedisRunRepository) Save(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.keyRun(run.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	return r.client.ZAdd(ctx, r.keyGraphRuns(run.GraphID), redis.Z{
		Score:  float64(run.Created.UnixNano()),
		Member: run.ID,
	}).Err()
}

// Update overwrites an existing run; SET XX leaves unknown ids untouched.
func (r *RedisRunRepository) Update(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	err = r.client.SetArgs(ctx, r.keyRun(run.ID), data, redis.SetArgs{Mode: "XX"}).Err()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return err
}

func (r *RedisRunRepository) FindByID(ctx context.Context, id string) (*domain.Run, error) {
	data, err := r.client.Get(ctx, r.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	return decodeRun(data)
}

func (r *RedisRunRepository) FindByGraphID(ctx context.Context, graphID string) ([]*domain.Run, error) {
	ids, err := r.client.ZRange(ctx, r.keyGraphRuns(graphID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	docs, err := mget(ctx, r.client, ids, r.keyRun)
	if err != nil {
		return nil, err
	}
	runs := make([]*domain.Run, 0, len(docs))
	for _, data := range docs {
		run, err := decodeRun(data)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func decodeRun(data []byte) (*domain.Run, error) {
	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	if run.ExecutionLog == nil {
		run.ExecutionLog = []domain.LogEntry{}
	}
	return &run, nil
}

// mget fetches the documents for ids in order in one pipeline, skipping keys
// that vanished since the index was read.
func mget(ctx context.Context, client *redis.Client, ids []string, key func(string) string) ([][]byte, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make([][]byte, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// OpenRedis connects to the Redis server at url (redis://host:port/db).
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("GFLOW_REDIS_URL must be set when using the REDIS database type")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid GFLOW_REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
