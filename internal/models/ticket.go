package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen      TicketStatus = "open"
	TicketEscalated TicketStatus = "escalated"
	TicketResolved  TicketStatus = "resolved"
)

// Ticket tracks one support request through classification and escalation.
// The conversation and message records remain the durable truth; tickets
// carry the decision outcome for follow-up.
type Ticket struct {
	ID              uuid.UUID    `json:"id"`
	CustomerID      uuid.UUID    `json:"customer_id"`
	ConversationID  uuid.UUID    `json:"conversation_id"`
	SourceChannel   Channel      `json:"source_channel"`
	Category        string       `json:"category,omitempty"`
	Priority        string       `json:"priority"`
	Status          TicketStatus `json:"status"`
	ResolutionNotes string       `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
}
