package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

// streamMaxLen caps the event stream; the worker persists entries long
// before they are trimmed.
const streamMaxLen = 100000

type RedisEventPublisher struct {
	client *redis.Client
	stream string
	log    zerolog.Logger
}

func NewRedisEventPublisher(client *redis.Client, stream string, log zerolog.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{client: client, stream: stream, log: log}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event models.SecurityEvent) {
	if p == nil || p.client == nil {
		return
	}

	values, err := event.StreamValues()
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("encode security event failed")
		return
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("publish security event failed")
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.SecurityEvent) {}
