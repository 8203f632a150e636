package models

import (
	"time"

	"github.com/google/uuid"
)

// Direction marks whether a message entered or left the system.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Role identifies who authored a message.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

// Message is one inbound or outbound unit of content. Immutable once
// stored; ordered by CreatedAt within a conversation.
type Message struct {
	ID               string    `json:"id"` // ULID
	ConversationID   uuid.UUID `json:"conversation_id"`
	Channel          Channel   `json:"channel"`
	Direction        Direction `json:"direction"`
	Role             Role      `json:"role"`
	Content          string    `json:"content"`
	ChannelMessageID string    `json:"channel_message_id,omitempty"`
	LatencyMS        int64     `json:"latency_ms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
