package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

const maxUpdateRetries = 10

type RedisConfig struct {
	Addr      string
	DB        int
	Password  string
	KeyPrefix string
	// TTL expires records; 0 keeps them until deleted.
	TTL time.Duration
}

// RedisStore keeps each job as a JSON string plus a sorted-set index
// scored by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisStore(ctx context.Context, cfg *RedisConfig, log logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.TTL, log), nil
}

func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: log.Named("store"),
	}
}

func (s *RedisStore) jobKey(id string) string { return s.prefix + "job:" + id }
func (s *RedisStore) indexKey() string        { return s.prefix + "jobs" }

func (s *RedisStore) Create(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.jobKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if !ok {
		return ErrJobExists
	}

	score := float64(job.CreatedAt.UnixMilli())
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{Score: score, Member: job.ID}).Err(); err != nil {
		return fmt.Errorf("failed to index job: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Job, error) {
	data, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &models.NotFoundError{JobID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return decodeJob(data)
}

// Update runs fn inside a WATCH/MULTI transaction and retries when another
// writer changed the record first.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*models.Job) error) (*models.Job, error) {
	key := s.jobKey(id)
	var updated *models.Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return &models.NotFoundError{JobID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to get job: %w", err)
		}

		job, err := decodeJob(data)
		if err != nil {
			return err
		}
		if err := fn(job); err != nil {
			return err
		}
		out, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err == nil {
			updated = job
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("Job update conflict, retrying", logger.JobID(id), logger.Int("attempt", i+1))
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to update job %s: too many concurrent writers", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.jobKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if del.Val() == 0 {
		return &models.NotFoundError{JobID: id}
	}
	return nil
}

// List reads the index newest first. Index entries whose record expired are
// pruned on the way.
func (s *RedisStore) List(ctx context.Context) ([]*models.Job, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job index: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Job{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	jobs := make([]*models.Job, 0, len(ids))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		job, err := decodeJob([]byte(raw))
		if err != nil {
			s.logger.Warn("Skipping unreadable job record", logger.JobID(ids[i]), logger.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}

	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			s.logger.Warn("Failed to prune job index", logger.Error(err))
		}
	}

	sortNewestFirst(jobs)
	return jobs, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeJob(data []byte) (*models.Job, error) {
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
