package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

type EventStore interface {
	Insert(ctx context.Context, event models.SecurityEvent) error
}

// Processor persists security events from the stream into the audit table.
type Processor struct {
	store  EventStore
	logger zerolog.Logger
}

func NewProcessor(store EventStore, logger zerolog.Logger) *Processor {
	return &Processor{
		store:  store,
		logger: logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := models.DecodeSecurityEvent(msg.Values)
	if err != nil {
		// acked and dropped: a malformed message never becomes valid
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed security event")
		return nil
	}

	switch event.Type {
	case models.EventReuseDetected:
		p.logger.Warn().
			Str("user_id", event.UserID).
			Int64("session_id", event.SessionID).
			Str("ip", event.IPAddress).
			Msg("refresh secret reuse detected")
	case models.EventLoginFailed:
		p.logger.Info().Str("ip", event.IPAddress).Msg("login failed")
	case models.EventLoginSucceeded, models.EventRevokedAll, models.EventPasswordChange:
		p.logger.Debug().Str("type", string(event.Type)).Str("user_id", event.UserID).Msg("security event")
	default:
		p.logger.Warn().Str("type", string(event.Type)).Msg("unknown security event type")
	}

	if err := p.store.Insert(ctx, event); err != nil {
		return fmt.Errorf("store %s event: %w", event.Type, err)
	}
	return nil
}
