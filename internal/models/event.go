package models

import (
	"errors"
	"strings"
	"time"
)

// Validation errors for inbound events. Neither is retryable: a malformed
// or unresolvable event indicates a broken upstream channel adapter and is
// routed to the dead-letter path.
var (
	ErrMalformedEvent = errors.New("malformed event: missing required fields")
	ErrUnresolvable   = errors.New("unresolvable event: no email or phone identifier")
)

// InboundEvent is the validated, strongly-typed form of a customer message
// arriving from a channel adapter. The core never sees raw webhook payloads;
// adapters validate at the transport boundary and emit this type.
type InboundEvent struct {
	EventID          string            `json:"event_id"` // ULID, dedup key
	Channel          Channel           `json:"channel"`
	CustomerEmail    string            `json:"customer_email,omitempty"`
	CustomerPhone    string            `json:"customer_phone,omitempty"`
	CustomerName     string            `json:"customer_name,omitempty"`
	Subject          string            `json:"subject,omitempty"`
	Content          string            `json:"content"`
	ChannelMessageID string            `json:"channel_message_id,omitempty"`
	ReceivedAt       time.Time         `json:"received_at"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	MustEscalate     bool              `json:"must_escalate,omitempty"` // upstream hard-constraint override
}

// Validate rejects events the pipeline cannot process. Malformed events are
// never retried.
func (e *InboundEvent) Validate() error {
	if e.EventID == "" || e.Channel == "" {
		return ErrMalformedEvent
	}
	if strings.TrimSpace(e.Content) == "" && strings.TrimSpace(e.Subject) == "" {
		return ErrMalformedEvent
	}
	if _, err := ParseChannel(string(e.Channel)); err != nil {
		return ErrMalformedEvent
	}
	if e.CustomerEmail == "" && e.CustomerPhone == "" {
		return ErrUnresolvable
	}
	return nil
}

// Text returns the subject and body joined for classification and
// sentiment scoring.
func (e *InboundEvent) Text() string {
	return strings.TrimSpace(strings.TrimSpace(e.Subject) + " " + strings.TrimSpace(e.Content))
}
