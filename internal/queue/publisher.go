package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxLen caps the stream when nothing drains it. Events carry raw
// reset tokens, so they must not accumulate.
const DefaultMaxLen = 10000

// Publisher appends events to a redis stream for the worker to consume.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream, maxLen: DefaultMaxLen}
}

// WithMaxLen overrides the approximate stream cap. Zero disables trimming.
func (p *Publisher) WithMaxLen(n int64) *Publisher {
	p.maxLen = n
	return p
}

func (p *Publisher) Publish(ctx context.Context, values map[string]any) (string, error) {
	if p == nil || p.client == nil {
		return "", nil
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return id, nil
}
