package memory

import (
	"context"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
)

type EventRepository struct {
	db *DB
}

func (r *EventRepository) Insert(_ context.Context, event models.SecurityEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextEvent++
	event.ID = r.db.nextEvent
	r.db.events = append(r.db.events, event)
	return nil
}

// All returns a copy of the stored events in insertion order.
func (r *EventRepository) All() []models.SecurityEvent {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]models.SecurityEvent, len(r.db.events))
	copy(out, r.db.events)
	return out
}
