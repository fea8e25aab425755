package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
	EventTokenRefreshed     EventType = "token_refreshed"
	EventLoggedOut          EventType = "logged_out"
	EventAllSessionsRevoked EventType = "all_sessions_revoked"
	EventRateLimited        EventType = "rate_limited"
)

// AllTypes lists every event type emitted by the session lifecycle.
var AllTypes = []EventType{
	EventLoginSucceeded,
	EventLoginFailed,
	EventTokenRefreshed,
	EventLoggedOut,
	EventAllSessionsRevoked,
	EventRateLimited,
}

// Event is an audit record. It never carries token values.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Subject   string            `json:"subject,omitempty"`
	UserID    int64             `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, subject string, userID int64, attrs map[string]string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Attrs:     attrs,
	}
}
