package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Insert(ctx context.Context, event models.SecurityEvent) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("encode detail: %w", err)
	}

	var sessionID *int64
	if event.SessionID != 0 {
		sessionID = &event.SessionID
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO security_events (event_type, user_id, session_id, ip_address, detail, occurred_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
	`, string(event.Type), event.UserID, sessionID, event.IPAddress, detail, event.OccurredAt)
	return err
}
