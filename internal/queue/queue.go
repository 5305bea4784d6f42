// Package queue wraps the distributed task broker used to fan out LP-contest
// work (spec §6: "at-least-once delivery, named queues, per-message TTL").
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskAggregateBlock is enqueued by the indexer (C5) once per throttled
	// tick, and by C8 again as a pagination continuation.
	TaskAggregateBlock = "contest:aggregate_block"
	// TaskAggregateUser is enqueued by C8, one per affected user, and
	// consumed by C9.
	TaskAggregateUser = "contest:aggregate_user"

	QueueBlocks = "contest_blocks"
	QueueUsers  = "contest_users"

	// TTLs named in spec §5.
	BlockTaskTTL = 300 * time.Second
	UserTaskTTL  = 3600 * time.Second
)

// AggregateBlockPayload is the `[block, offset]` argument named in spec §6.
type AggregateBlockPayload struct {
	Block  uint64 `json:"block"`
	Offset int64  `json:"offset"`
}

// AggregateUserPayload is the `[user, block, timestamp]` argument.
type AggregateUserPayload struct {
	User      string `json:"user"`
	Block     uint64 `json:"block"`
	Timestamp int64  `json:"timestamp"`
}

// Enqueuer is the narrow interface C8 needs; satisfied by *Client below or
// a test fake.
type Enqueuer interface {
	EnqueueAggregateBlock(ctx context.Context, p AggregateBlockPayload) error
	EnqueueAggregateUser(ctx context.Context, p AggregateUserPayload) error
}

// Client adapts asynq to Enqueuer.
type Client struct {
	client *asynq.Client
}

func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse redis uri: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

func (c *Client) EnqueueAggregateBlock(ctx context.Context, p AggregateBlockPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskAggregateBlock, payload)
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueBlocks), asynq.Timeout(BlockTaskTTL), asynq.MaxRetry(0))
	return err
}

func (c *Client) EnqueueAggregateUser(ctx context.Context, p AggregateUserPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskAggregateUser, payload)
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueUsers), asynq.Timeout(UserTaskTTL), asynq.MaxRetry(0))
	return err
}

func (c *Client) Close() error { return c.client.Close() }

// NewServerMux wires the two task kinds to their handlers, following the
// teacher's worker-registration convention.
func NewServerMux(handleBlock, handleUser asynq.HandlerFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAggregateBlock, handleBlock)
	mux.HandleFunc(TaskAggregateUser, handleUser)
	return mux
}

// NewServer builds the asynq worker server bound to both named queues.
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse redis uri: %w", err)
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueBlocks: 2,
			QueueUsers:  6,
		},
	}), nil
}
