package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	readCount    = 10
	readBlock    = 5 * time.Second
	retryBackoff = 2 * time.Second
)

type MessageHandler interface {
	Handle(ctx context.Context, msg redis.XMessage) error
}

// StreamClient is the part of *redis.Client the consumer needs.
type StreamClient interface {
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
	XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd
}

type Options struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

// Consumer reads a stream through a consumer group. A message is acked only
// after its handler succeeded; failures stay pending and are reclaimed once
// they have been idle for ClaimInterval.
type Consumer struct {
	client  StreamClient
	opts    Options
	logger  zerolog.Logger
	handler MessageHandler
}

func NewConsumer(client StreamClient, opts Options, logger zerolog.Logger, handler MessageHandler) *Consumer {
	if opts.ClaimInterval <= 0 {
		opts.ClaimInterval = 30 * time.Second
	}
	return &Consumer{
		client:  client,
		opts:    opts,
		logger:  logger.With().Str("stream", opts.Stream).Str("group", opts.Group).Logger(),
		handler: handler,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.ClaimInterval)
	defer ticker.Stop()

	c.logger.Info().Str("consumer", c.opts.Consumer).Msg("stream consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.read(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("stream read error")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("claim stalled messages failed")
			}
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  []string{c.opts.Stream, ">"},
		Count:    readCount,
		Block:    readBlock,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		c.deliver(ctx, stream.Messages)
	}
	return nil
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.opts.Stream,
		Group:  c.opts.Group,
		Start:  "-",
		End:    "+",
		Count:  readCount,
	}).Result()
	if err != nil {
		return err
	}

	var stalled []string
	for _, entry := range pending {
		if entry.Idle >= c.opts.ClaimInterval {
			stalled = append(stalled, entry.ID)
		}
	}
	if len(stalled) == 0 {
		return nil
	}

	msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.opts.Stream,
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		MinIdle:  c.opts.ClaimInterval,
		Messages: stalled,
	}).Result()
	if err != nil {
		return err
	}

	c.logger.Debug().Int("claimed", len(msgs)).Msg("reclaimed stalled messages")
	c.deliver(ctx, msgs)
	return nil
}

func (c *Consumer) deliver(ctx context.Context, msgs []redis.XMessage) {
	for _, msg := range msgs {
		if err := c.handler.Handle(ctx, msg); err != nil {
			c.logger.Error().
				Err(err).
				Str("message_id", msg.ID).
				Msg("handle message failed")
			continue
		}
		if err := c.client.XAck(ctx, c.opts.Stream, c.opts.Group, msg.ID).Err(); err != nil {
			c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("ack failed")
		}
	}
}
