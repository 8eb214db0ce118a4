package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces queue keys.
const DefaultRedisPrefix = "matchd:queue:"

// claimBatch bounds how many due tasks are considered per claim.
const claimBatch = 32

// claimScript moves a task from pending to active and stores its leased
// state in one step. It returns 0 when another worker already took the task.
//
// KEYS: pending set, active set, task hash. ARGV: id, task data, lease score.
var claimScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[3], "data", ARGV[2])
redis.call("ZADD", KEYS[2], ARGV[3], ARGV[1])
return 1
`)

// requeueScript moves a task whose lease expired from active back to pending.
//
// KEYS: active set, pending set. ARGV: id, pending score.
var requeueScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// RedisBackend stores each task in a hash and tracks pending tasks in a
// per-type sorted set scored by NextRunAt. Active leases live in a second
// sorted set scored by LeaseUntil. A claim is owned by whichever worker
// removes the id from the pending set.
type RedisBackend struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisBackend wraps client. A nil clock uses time.Now.
func NewRedisBackend(client *redis.Client, prefix string, now func() time.Time) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisBackend{client: client, prefix: prefix, now: now}
}

func (b *RedisBackend) taskKey(id string) string { return b.prefix + "task:" + id }
func (b *RedisBackend) pendingKey(taskType string) string { return b.prefix + "pending:" + taskType }
func (b *RedisBackend) activeKey(taskType string) string { return b.prefix + "active:" + taskType }
func (b *RedisBackend) deadKey(taskType string) string { return b.prefix + "dead:" + taskType }
func (b *RedisBackend) completedKey() string { return b.prefix + "completed" }

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func scoreString(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func (b *RedisBackend) Enqueue(ctx context.Context, t *Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.taskKey(t.ID), "data", data, "progress", t.Progress)
		pipe.ZAdd(ctx, b.pendingKey(t.Type), redis.Z{Score: score(t.NextRunAt), Member: t.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store task %s: %w", t.ID, err)
	}
	return nil
}

func (b *RedisBackend) Claim(ctx context.Context, taskType string, leaseUntil time.Time) (*Task, error) {
	now := b.now()
	if err := b.requeueExpired(ctx, taskType, now); err != nil {
		return nil, err
	}

	ids, err := b.client.ZRangeByScore(ctx, b.pendingKey(taskType), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   scoreString(now),
		Count: claimBatch,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}

	candidates := make([]*Task, 0, len(ids))
	for _, id := range ids {
		t, err := b.Get(ctx, id)
		if errors.Is(err, ErrTaskNotFound) {
			b.client.ZRem(ctx, b.pendingKey(taskType), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, t)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].claimsBefore(candidates[j])
	})

	for _, t := range candidates {
		started := now
		lease := leaseUntil
		t.Status = StatusActive
		t.StartedAt = &started
		t.LeaseUntil = &lease
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task: %w", err)
		}

		keys := []string{b.pendingKey(taskType), b.activeKey(taskType), b.taskKey(t.ID)}
		claimed, err := claimScript.Run(ctx, b.client, keys, t.ID, data, score(lease)).Int()
		if err != nil {
			return nil, fmt.Errorf("failed to claim task %s: %w", t.ID, err)
		}
		if claimed == 0 {
			continue // another worker owns it
		}
		return t, nil
	}
	return nil, nil
}

// requeueExpired moves tasks whose lease ended before now back to pending.
func (b *RedisBackend) requeueExpired(ctx context.Context, taskType string, now time.Time) error {
	expired, err := b.client.ZRangeByScore(ctx, b.activeKey(taskType), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + scoreString(now),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list expired leases: %w", err)
	}
	for _, id := range expired {
		keys := []string{b.activeKey(taskType), b.pendingKey(taskType)}
		if err := requeueScript.Run(ctx, b.client, keys, id, score(now)).Err(); err != nil {
			return fmt.Errorf("failed to requeue %s: %w", id, err)
		}
	}
	return nil
}

func (b *RedisBackend) Save(ctx context.Context, t *Task) error {
	exists, err := b.client.Exists(ctx, b.taskKey(t.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check task %s: %w", t.ID, err)
	}
	if exists == 0 {
		return ErrTaskNotFound
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.taskKey(t.ID), "data", data, "progress", t.Progress)
		pipe.ZRem(ctx, b.activeKey(t.Type), t.ID)
		switch t.Status {
		case StatusPending:
			pipe.ZAdd(ctx, b.pendingKey(t.Type), redis.Z{Score: score(t.NextRunAt), Member: t.ID})
		case StatusCompleted:
			completed := b.now()
			if t.CompletedAt != nil {
				completed = *t.CompletedAt
			}
			pipe.ZAdd(ctx, b.completedKey(), redis.Z{Score: score(completed), Member: t.ID})
		case StatusDead:
			pipe.LPush(ctx, b.deadKey(t.Type), t.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save task %s: %w", t.ID, err)
	}
	return nil
}

func (b *RedisBackend) SetProgress(ctx context.Context, id string, progress int) error {
	exists, err := b.client.Exists(ctx, b.taskKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check task %s: %w", id, err)
	}
	if exists == 0 {
		return ErrTaskNotFound
	}
	return b.client.HSet(ctx, b.taskKey(id), "progress", progress).Err()
}

func (b *RedisBackend) Get(ctx context.Context, id string) (*Task, error) {
	fields, err := b.client.HGetAll(ctx, b.taskKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}
	data, ok := fields["data"]
	if !ok {
		return nil, ErrTaskNotFound
	}
	var t Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	if p, ok := fields["progress"]; ok {
		if n, err := strconv.Atoi(p); err == nil {
			t.Progress = n
		}
	}
	return &t, nil
}

func (b *RedisBackend) Cancel(ctx context.Context, id string) error {
	t, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != StatusPending {
		return ErrNotCancellable
	}
	removed, err := b.client.ZRem(ctx, b.pendingKey(t.Type), id).Result()
	if err != nil {
		return fmt.Errorf("failed to cancel task %s: %w", id, err)
	}
	if removed == 0 {
		return ErrNotCancellable
	}
	return b.client.Del(ctx, b.taskKey(id)).Err()
}

func (b *RedisBackend) Dead(ctx context.Context, taskType string) ([]*Task, error) {
	ids, err := b.client.LRange(ctx, b.deadKey(taskType), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead tasks: %w", err)
	}
	dead := make([]*Task, 0, len(ids))
	for _, id := range ids {
		t, err := b.Get(ctx, id)
		if errors.Is(err, ErrTaskNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		dead = append(dead, t)
	}
	sort.Slice(dead, func(i, j int) bool {
		return dead[i].CreatedAt.Before(dead[j].CreatedAt)
	})
	return dead, nil
}

func (b *RedisBackend) PurgeCompleted(ctx context.Context, before time.Time) (int, error) {
	ids, err := b.client.ZRangeByScore(ctx, b.completedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + scoreString(before),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	for _, id := range ids {
		_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, b.taskKey(id))
			pipe.ZRem(ctx, b.completedKey(), id)
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("failed to purge task %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return nil
}
