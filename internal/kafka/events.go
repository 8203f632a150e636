package kafka

// Transport payloads produced by the pipeline. Inbound events use
// models.InboundEvent directly; these are the side outputs.

// EscalationEvent is published whenever processing decides, or fails in a
// way that requires, human attention.
type EscalationEvent struct {
	TicketID  string   `json:"ticket_id"`
	Reason    string   `json:"reason"`
	Reasons   []string `json:"reasons,omitempty"`
	Urgency   string   `json:"urgency"`
	Channel   string   `json:"channel,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// MetricEvent is the best-effort per-message telemetry record.
type MetricEvent struct {
	EventType string `json:"event_type"`
	Channel   string `json:"channel"`
	LatencyMS int64  `json:"latency_ms"`
	Timestamp string `json:"timestamp"`
}

// OutboundMessage is a rendered reply awaiting delivery by a channel
// provider adapter.
type OutboundMessage struct {
	Channel     string `json:"channel"`
	ToEmail     string `json:"to_email,omitempty"`
	ToPhone     string `json:"to_phone,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// DeadLetter wraps an event that could not be processed and must not be
// retried.
type DeadLetter struct {
	Reason    string `json:"reason"`
	Error     string `json:"error"`
	Event     []byte `json:"event"`
	Timestamp string `json:"timestamp"`
}
