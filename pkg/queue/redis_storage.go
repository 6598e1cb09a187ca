package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStorage is a Storage backed by Redis, suitable for deployments where
// several worker processes share one queue.
//
// Layout: each job lives in a hash keyed by its id; due jobs sit in a sorted
// set scored by their run time, claimed jobs in a second sorted set scored by
// their lock expiry. Claiming moves a member between the two sets inside a
// Lua script, so no two workers can claim the same job.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage creates a Redis-backed job store. The prefix namespaces
// all keys; an empty prefix defaults to "notify:queue".
func NewRedisStorage(client *redis.Client, prefix string) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrStorageNil
	}
	if prefix == "" {
		prefix = "notify:queue"
	}
	return &RedisStorage{client: client, prefix: prefix}, nil
}

func (s *RedisStorage) dueKey() string    { return s.prefix + ":due" }
func (s *RedisStorage) lockedKey() string { return s.prefix + ":locked" }
func (s *RedisStorage) jobKey(id string) string {
	return s.prefix + ":job:" + id
}

// claimScript reclaims expired locks, then pops the earliest due job and
// locks it. KEYS[1]=due, KEYS[2]=locked; ARGV[1]=now, ARGV[2]=lockedUntil.
var claimScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[2], id)
  redis.call('ZADD', KEYS[1], ARGV[1], id)
end
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #due == 0 then
  return false
end
redis.call('ZREM', KEYS[1], due[1])
redis.call('ZADD', KEYS[2], ARGV[2], due[1])
return due[1]
`)

// CreateJob implements Storage.
func (s *RedisStorage) CreateJob(ctx context.Context, job *Job) error {
	id := job.ID.String()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.jobKey(id), map[string]any{
		"notification_id": job.NotificationID.String(),
		"status":          string(JobStatusPending),
		"attempts":        job.Attempts,
		"max_attempts":    job.MaxAttempts,
		"run_at":          job.RunAt.Unix(),
		"created_at":      job.CreatedAt.Unix(),
	})
	pipe.ZAdd(ctx, s.dueKey(), redis.Z{Score: float64(job.RunAt.Unix()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create job: %w", err)
	}
	return nil
}

// ClaimJob implements Storage.
func (s *RedisStorage) ClaimJob(ctx context.Context, lockFor time.Duration) (*Job, error) {
	now := time.Now()

	res, err := claimScript.Run(ctx, s.client,
		[]string{s.dueKey(), s.lockedKey()},
		now.Unix(), now.Add(lockFor).Unix(),
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoJobToClaim
	}
	if err != nil {
		return nil, fmt.Errorf("redis claim job: %w", err)
	}

	id, ok := res.(string)
	if !ok || id == "" {
		return nil, ErrNoJobToClaim
	}

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, s.jobKey(id), "attempts", 1)
	pipe.HSet(ctx, s.jobKey(id), "status", string(JobStatusProcessing))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis mark job processing: %w", err)
	}

	return s.readJob(ctx, id)
}

// CompleteJob implements Storage.
func (s *RedisStorage) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	id := jobID.String()

	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, s.lockedKey(), id)
	pipe.HSet(ctx, s.jobKey(id), "status", string(JobStatusCompleted))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis complete job: %w", err)
	}
	return nil
}

// FailJob implements Storage.
func (s *RedisStorage) FailJob(ctx context.Context, jobID uuid.UUID, reason string, retryDelay time.Duration) error {
	id := jobID.String()

	vals, err := s.client.HMGet(ctx, s.jobKey(id), "attempts", "max_attempts").Result()
	if err != nil {
		return fmt.Errorf("redis read job attempts: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil {
		return ErrJobNotFound
	}
	attempts := parseInt(vals[0])
	maxAttempts := parseInt(vals[1])

	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, s.lockedKey(), id)
	pipe.HSet(ctx, s.jobKey(id), "error", reason)
	if attempts >= maxAttempts {
		pipe.HSet(ctx, s.jobKey(id), "status", string(JobStatusFailed))
	} else {
		runAt := time.Now().Add(retryDelay)
		pipe.HSet(ctx, s.jobKey(id), "status", string(JobStatusPending), "run_at", runAt.Unix())
		pipe.ZAdd(ctx, s.dueKey(), redis.Z{Score: float64(runAt.Unix()), Member: id})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis fail job: %w", err)
	}
	return nil
}

func (s *RedisStorage) readJob(ctx context.Context, id string) (*Job, error) {
	vals, err := s.client.HGetAll(ctx, s.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read job: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrJobNotFound
	}

	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("redis job key %q: %w", id, err)
	}
	notificationID, err := uuid.Parse(vals["notification_id"])
	if err != nil {
		return nil, fmt.Errorf("redis job %s payload: %w", id, err)
	}

	attempts, _ := strconv.Atoi(vals["attempts"])
	maxAttempts, _ := strconv.Atoi(vals["max_attempts"])
	runAt, _ := strconv.ParseInt(vals["run_at"], 10, 64)
	createdAt, _ := strconv.ParseInt(vals["created_at"], 10, 64)

	return &Job{
		ID:             jobID,
		NotificationID: notificationID,
		Status:         JobStatus(vals["status"]),
		Attempts:       attempts,
		MaxAttempts:    maxAttempts,
		RunAt:          time.Unix(runAt, 0).UTC(),
		Error:          vals["error"],
		CreatedAt:      time.Unix(createdAt, 0).UTC(),
	}, nil
}

func parseInt(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
