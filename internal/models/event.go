package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SecurityEventType string

const (
	EventLoginSucceeded SecurityEventType = "login.succeeded"
	EventLoginFailed    SecurityEventType = "login.failed"
	EventReuseDetected  SecurityEventType = "session.reuse_detected"
	EventRevokedAll     SecurityEventType = "session.revoked_all"
	EventPasswordChange SecurityEventType = "password.changed"
)

type SecurityEvent struct {
	ID         int64             `json:"id,omitempty"`
	Type       SecurityEventType `json:"type"`
	UserID     string            `json:"userId,omitempty"`
	SessionID  int64             `json:"sessionId,omitempty"`
	IPAddress  string            `json:"ipAddress,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// StreamValues encodes the event as redis stream fields.
func (e SecurityEvent) StreamValues() (map[string]any, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":    string(e.Type),
		"payload": string(payload),
	}, nil
}

// DecodeSecurityEvent is the inverse of StreamValues.
func DecodeSecurityEvent(values map[string]any) (SecurityEvent, error) {
	raw, ok := values["payload"].(string)
	if !ok || raw == "" {
		return SecurityEvent{}, errors.New("stream message has no payload")
	}
	var event SecurityEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return SecurityEvent{}, fmt.Errorf("decode payload: %w", err)
	}
	if event.Type == "" {
		return SecurityEvent{}, errors.New("stream message has no event type")
	}
	return event, nil
}
