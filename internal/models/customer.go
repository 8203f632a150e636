package models

import (
	"time"

	"github.com/google/uuid"
)

// IdentifierType distinguishes how a customer identifier was observed.
type IdentifierType string

const (
	IdentifierEmail IdentifierType = "email"
	IdentifierPhone IdentifierType = "phone"
)

// Customer is the identity anchor. An identifier value (email or phone)
// maps to at most one customer; identifiers are only ever appended.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerIdentifier links a channel-level identifier to a customer.
type CustomerIdentifier struct {
	CustomerID uuid.UUID      `json:"customer_id"`
	Type       IdentifierType `json:"type"`
	Value      string         `json:"value"`
	CreatedAt  time.Time      `json:"created_at"`
}
