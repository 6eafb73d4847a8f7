package model

import (
	"time"

	"github.com/google/uuid"
)

// Counter names an engagement counter that can be incremented.
type Counter string

const (
	CounterViews           Counter = "views"
	CounterLikes           Counter = "likes"
	CounterConversions     Counter = "conversions"
	CounterAttributedSales Counter = "attributed_sales"
)

// Valid reports whether c is a known counter.
func (c Counter) Valid() bool {
	switch c {
	case CounterViews, CounterLikes, CounterConversions, CounterAttributedSales:
		return true
	}
	return false
}

// EngagementEvent is a fire-and-forget counter bump.
type EngagementEvent struct {
	EventID     string
	Kind        Kind
	CandidateID string
	Counter     Counter
	EnqueuedAt  time.Time
}

// NewEngagementEvent stamps a new event with a random id.
func NewEngagementEvent(kind Kind, candidateID string, counter Counter, now time.Time) EngagementEvent {
	return EngagementEvent{
		EventID:     uuid.NewString(),
		Kind:        kind,
		CandidateID: candidateID,
		Counter:     counter,
		EnqueuedAt:  now,
	}
}
