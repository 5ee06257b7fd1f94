//go:build integration

package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Lllllllleong/applicationsummaryflow/internal/queue"
)

type RedisQueueSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *redis.Client
}

func TestRedisQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisQueueSuite))
}

func (s *RedisQueueSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx)
	s.Require().NoError(err)
	s.client, err = queue.NewRedisClient(ctx, url)
	s.Require().NoError(err)
}

func (s *RedisQueueSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *RedisQueueSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *RedisQueueSuite) newQueue(consumer string, visibility time.Duration) *queue.Redis {
	q, err := queue.NewRedis(s.client, queue.RedisConfig{
		Group:             "summary",
		Consumer:          consumer,
		VisibilityTimeout: visibility,
	})
	s.Require().NoError(err)
	return q
}

func (s *RedisQueueSuite) TestSendReceiveDelete() {
	ctx := context.Background()
	q := s.newQueue("worker-1", time.Minute)

	empty, err := q.Receive(ctx, "source", 10)
	s.Require().NoError(err)
	s.Empty(empty)

	s.Require().NoError(q.Send(ctx, "source", `{"applicationJSONDocumentSummaryKey":"a.json"}`))
	s.Require().NoError(q.Send(ctx, "source", `{"applicationJSONDocumentSummaryKey":"b.json"}`))

	msgs, err := q.Receive(ctx, "source", 10)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Contains(msgs[0].Body, "a.json")

	for _, m := range msgs {
		s.Require().NoError(q.Delete(ctx, "source", m.ReceiptHandle))
	}
	n, err := s.client.XLen(ctx, "source").Result()
	s.Require().NoError(err)
	s.Zero(n)

	s.ErrorIs(q.Delete(ctx, "source", msgs[0].ReceiptHandle), queue.ErrUnknownReceipt)
}

func (s *RedisQueueSuite) TestUndeletedMessageIsRedelivered() {
	ctx := context.Background()
	first := s.newQueue("worker-1", 200*time.Millisecond)
	second := s.newQueue("worker-2", 200*time.Millisecond)

	s.Require().NoError(first.Send(ctx, "source", "body"))
	got, err := first.Receive(ctx, "source", 1)
	s.Require().NoError(err)
	s.Require().Len(got, 1)

	hidden, err := second.Receive(ctx, "source", 1)
	s.Require().NoError(err)
	s.Empty(hidden)

	s.Eventually(func() bool {
		again, err := second.Receive(ctx, "source", 1)
		return err == nil && len(again) == 1 && again[0].ID == got[0].ID
	}, 5*time.Second, 100*time.Millisecond)
}
