package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus is the lifecycle state of a conversation thread.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationClosed    ConversationStatus = "closed"
	ConversationEscalated ConversationStatus = "escalated"
)

// ContinuityWindow is how long a conversation stays attachable: new events
// from the same customer inside this window join the existing active
// conversation instead of opening a new one.
const ContinuityWindow = 24 * time.Hour

// Conversation is one logical support thread for a customer, possibly
// spanning channels. At most one active conversation exists per customer
// within the continuity window.
type Conversation struct {
	ID             uuid.UUID          `json:"id"`
	CustomerID     uuid.UUID          `json:"customer_id"`
	InitialChannel Channel            `json:"initial_channel"`
	Status         ConversationStatus `json:"status"`
	StartedAt      time.Time          `json:"started_at"`
}
