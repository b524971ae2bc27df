package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
)

// WakeMessage tells the compute worker a run was enqueued for an exam.
type WakeMessage struct {
	RunID  uuid.UUID `json:"run_id"`
	ExamID uuid.UUID `json:"exam_id"`
}

// ComputeQueue is the wake-up channel between the API and the compute
// worker. The database compute_run table is the queue of record; this bus
// only shortens the worker's poll latency, so a missed message is harmless.
type ComputeQueue interface {
	NotifyEnqueued(ctx context.Context, msg WakeMessage) error
	StartListener(ctx context.Context, onWake func(msg WakeMessage)) error
	Close() error
}

type computeQueue struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewComputeQueue(log *logger.Logger) (ComputeQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_COMPUTE_CHANNEL"))
	if ch == "" {
		ch = "compute"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &computeQueue{
		log:     log.With("client", "RedisComputeQueue"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (q *computeQueue) NotifyEnqueued(ctx context.Context, msg WakeMessage) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("compute queue not initialized")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.rdb.Publish(ctx, q.channel, raw).Err()
}

func (q *computeQueue) StartListener(ctx context.Context, onWake func(msg WakeMessage)) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("compute queue not initialized")
	}
	sub := q.rdb.Subscribe(ctx, q.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg WakeMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					q.log.Warn("Dropping malformed wake message", "error", err)
					continue
				}
				onWake(msg)
			}
		}
	}()
	return nil
}

func (q *computeQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
