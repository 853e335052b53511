package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/go-redis/redis/v8"
)

// RunRepository records finished runs. Nothing in a run reads it back.
type RunRepository interface {
	Save(ctx context.Context, rec domain.RunResult) error
	Get(ctx context.Context, id string) (*domain.RunResult, error)
	Recent(ctx context.Context, limit int) ([]domain.RunResult, error)
}

type runRedisRepo struct {
	rdb *redis.Client
}

func NewRunRepository(rdb *redis.Client) RunRepository {
	return &runRedisRepo{rdb: rdb}
}

func (r *runRedisRepo) keyRunsHash() string  { return "quotegen:runs" }
func (r *runRedisRepo) keyRunsIndex() string { return "quotegen:runs:index" }

func (r *runRedisRepo) Save(ctx context.Context, rec domain.RunResult) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keyRunsHash(), rec.RunID, string(b))
	pipe.ZAdd(ctx, r.keyRunsIndex(), &redis.Z{Score: float64(rec.CompletedAt.UnixMilli()), Member: rec.RunID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save run: %w", err)
	}
	return nil
}

func (r *runRedisRepo) Get(ctx context.Context, id string) (*domain.RunResult, error) {
	js, err := r.rdb.HGet(ctx, r.keyRunsHash(), id).Result()
	if err == redis.Nil || js == "" {
		return nil, fmt.Errorf("not-found")
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET run: %w", err)
	}
	var rec domain.RunResult
	if err := json.Unmarshal([]byte(js), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &rec, nil
}

// Recent returns up to limit runs, newest first.
func (r *runRedisRepo) Recent(ctx context.Context, limit int) ([]domain.RunResult, error) {
	if limit <= 0 {
		limit = 10
	}
	ids, err := r.rdb.ZRevRange(ctx, r.keyRunsIndex(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ZREVRANGE runs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := r.rdb.HMGet(ctx, r.keyRunsHash(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HMGET runs: %w", err)
	}
	out := make([]domain.RunResult, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		var rec domain.RunResult
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
