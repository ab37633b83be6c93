// Package notify fans judging events out to live observers.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventScoreUpdated EventType = "score.updated"
	EventRoundClosed  EventType = "round.closed"
	EventRoundCreated EventType = "round.created"
)

// Event is what observers receive. Scores is keyed by criterion id and is
// only set for score.updated.
type Event struct {
	ID         string       `json:"id"`
	Type       EventType    `json:"type"`
	RoundID    uint         `json:"round_id"`
	TeamID     uint         `json:"team_id,omitempty"`
	Scores     map[uint]int `json:"scores,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewEvent(eventType EventType, roundID, teamID uint, scores map[uint]int) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		RoundID:    roundID,
		TeamID:     teamID,
		Scores:     scores,
		OccurredAt: time.Now().UTC(),
	}
}

//go:generate mockgen -source=event.go -destination=mocks/mock_publisher.go -package=mocks

// Publisher delivers an event to whoever is listening. Delivery is at most
// once and callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
