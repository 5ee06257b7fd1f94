package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const bodyField = "body"

// RedisConfig configures the Redis Streams queue.
type RedisConfig struct {
	// Group is the consumer group every pipeline instance joins.
	Group string
	// Consumer names this instance within the group.
	Consumer string
	// VisibilityTimeout is how long a delivered message may stay pending
	// before another receive claims it again.
	VisibilityTimeout time.Duration
}

// Redis is a Queue on Redis Streams. Each queue name is a stream; messages
// are read through a consumer group so a delivered but undeleted message stays
// in the group's pending list and is reclaimed once it has been idle for the
// visibility timeout.
type Redis struct {
	client     *redis.Client
	group      string
	consumer   string
	visibility time.Duration

	groups sync.Map // stream name -> struct{}
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis URL must be provided")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedis returns a queue that uses client. The client is owned by the caller.
func NewRedis(client *redis.Client, cfg RedisConfig) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client must be provided")
	}
	if cfg.Group == "" || cfg.Consumer == "" {
		return nil, errors.New("redis queue needs a consumer group and consumer name")
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = DefaultVisibilityTimeout
	}
	return &Redis{
		client:     client,
		group:      cfg.Group,
		consumer:   cfg.Consumer,
		visibility: cfg.VisibilityTimeout,
	}, nil
}

func (q *Redis) ensureGroup(ctx context.Context, stream string) error {
	if _, ok := q.groups.Load(stream); ok {
		return nil
	}
	err := q.client.XGroupCreateMkStream(ctx, stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", q.group, stream, err)
	}
	q.groups.Store(stream, struct{}{})
	return nil
}

// Receive first reclaims messages whose previous delivery timed out, then
// reads new ones. It never blocks waiting for messages.
func (q *Redis) Receive(ctx context.Context, queue string, max int) ([]Message, error) {
	if max <= 0 {
		return nil, nil
	}
	if err := q.ensureGroup(ctx, queue); err != nil {
		return nil, err
	}

	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   queue,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.visibility,
		Start:    "0-0",
		Count:    int64(max),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to reclaim messages from %s: %w", queue, err)
	}
	out := toMessages(claimed)

	if remaining := max - len(out); remaining > 0 {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{queue, ">"},
			Count:    int64(remaining),
			Block:    -1,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to read messages from %s: %w", queue, err)
		}
		for _, s := range streams {
			out = append(out, toMessages(s.Messages)...)
		}
	}
	return out, nil
}

func toMessages(in []redis.XMessage) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		body, _ := m.Values[bodyField].(string)
		out = append(out, Message{ID: m.ID, Body: body, ReceiptHandle: m.ID})
	}
	return out
}

func (q *Redis) Send(ctx context.Context, queue, body string) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: queue,
		Values: map[string]any{bodyField: body},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", queue, err)
	}
	return nil
}

// Delete acknowledges the message and removes it from the stream.
func (q *Redis) Delete(ctx context.Context, queue, receiptHandle string) error {
	var ack *redis.IntCmd
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ack = pipe.XAck(ctx, queue, q.group, receiptHandle)
		pipe.XDel(ctx, queue, receiptHandle)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s from %s: %w", receiptHandle, queue, err)
	}
	if ack.Val() == 0 {
		return fmt.Errorf("message %s on %s: %w", receiptHandle, queue, ErrUnknownReceipt)
	}
	return nil
}
