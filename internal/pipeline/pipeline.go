// Package pipeline runs an inbound event through the full processing
// chain: identity resolution, deduplication, durable message capture,
// state tracking, classification, ticketing, and reply composition.
// Failures are never silent: events that cannot be processed are
// dead-lettered and the customer gets a best-effort apology.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskroute/deskroute/internal/compose"
	"github.com/deskroute/deskroute/internal/engine"
	"github.com/deskroute/deskroute/internal/identity"
	"github.com/deskroute/deskroute/internal/kafka"
	"github.com/deskroute/deskroute/internal/metrics"
	"github.com/deskroute/deskroute/internal/models"
	"github.com/deskroute/deskroute/internal/state"
	"github.com/deskroute/deskroute/internal/store"
)

const (
	storeAttempts = 3
	retryBackoff  = 100 * time.Millisecond
)

const apologyBody = "We're sorry - something went wrong while processing your request. " +
	"Our team has been notified and will follow up with you directly."

// StateStore is the cache surface the pipeline needs. *store.RedisStore
// implements it; tests substitute an in-memory fake.
type StateStore interface {
	LoadState(ctx context.Context, customerID string) (*state.State, error)
	SaveState(ctx context.Context, st state.State) error
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
}

// Publisher is the event-transport surface the pipeline needs.
// *kafka.Producer implements it.
type Publisher interface {
	PublishOutbound(ctx context.Context, key string, msg kafka.OutboundMessage) error
	PublishEscalation(ctx context.Context, ev kafka.EscalationEvent) error
	PublishMetric(ctx context.Context, ev kafka.MetricEvent) error
	PublishDeadLetter(ctx context.Context, dl kafka.DeadLetter) error
}

// Outcome is the result of processing one inbound event. The synchronous
// HTTP submit path returns it to the caller; the worker logs it.
type Outcome struct {
	Duplicate bool             `json:"duplicate,omitempty"`
	Customer  *models.Customer `json:"customer,omitempty"`
	Ticket    *models.Ticket   `json:"ticket,omitempty"`
	Decision  engine.Result    `json:"decision"`
	Reply     string           `json:"reply,omitempty"`
	State     state.Report     `json:"state"`
}

// Processor wires the stages together.
type Processor struct {
	store    store.DataStore
	states   StateStore
	resolver *identity.Resolver
	decider  engine.DecisionProvider
	producer Publisher
	logger   zerolog.Logger
}

// NewProcessor creates a processor over the given dependencies.
func NewProcessor(ds store.DataStore, states StateStore, decider engine.DecisionProvider, producer Publisher, logger zerolog.Logger) *Processor {
	return &Processor{
		store:    ds,
		states:   states,
		resolver: identity.NewResolver(ds),
		decider:  decider,
		producer: producer,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Process decodes a raw transport payload and runs it through the
// pipeline. Undecodable payloads are dead-lettered and never retried.
func (p *Processor) Process(ctx context.Context, raw []byte) error {
	var ev models.InboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		p.deadLetter(ctx, "unknown", "malformed", raw, err)
		return fmt.Errorf("%w: %v", models.ErrMalformedEvent, err)
	}
	_, err := p.ProcessEvent(ctx, &ev)
	return err
}

// ProcessEvent runs one decoded event through every stage. Permanent
// failures (malformed, unresolvable) go straight to the dead-letter
// topic; transient store failures are retried a bounded number of times
// first. Any failure after the customer is known triggers the apology
// path so the customer is never left without a reply.
func (p *Processor) ProcessEvent(ctx context.Context, ev *models.InboundEvent) (*Outcome, error) {
	started := time.Now()

	if err := ev.Validate(); err != nil {
		p.deadLetterEvent(ctx, ev, err)
		return nil, err
	}

	// Redeliveries must not move counters, so dedup comes before any
	// state-changing stage.
	first, err := p.states.MarkEventProcessed(ctx, ev.EventID)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if !first {
		metrics.MessagesProcessed.WithLabelValues(string(ev.Channel), "duplicate").Inc()
		p.logger.Debug().Str("event_id", ev.EventID).Msg("duplicate delivery skipped")
		return &Outcome{Duplicate: true}, nil
	}

	res, err := p.resolveWithRetry(ctx, ev)
	if err != nil {
		if errors.Is(err, models.ErrUnresolvable) {
			p.deadLetterEvent(ctx, ev, err)
			return nil, err
		}
		p.deadLetterEvent(ctx, ev, err)
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	outcome, err := p.handleResolved(ctx, ev, res)
	if err != nil {
		p.apologize(ctx, ev, res)
		p.deadLetterEvent(ctx, ev, err)
		return nil, err
	}

	elapsed := time.Since(started)
	metrics.MessagesProcessed.WithLabelValues(string(ev.Channel), "ok").Inc()
	metrics.ProcessingDuration.WithLabelValues(string(ev.Channel)).Observe(elapsed.Seconds())

	// Telemetry is best-effort and never fails the event.
	if err := p.producer.PublishMetric(ctx, kafka.MetricEvent{
		EventType: "message_processed",
		Channel:   string(ev.Channel),
		LatencyMS: elapsed.Milliseconds(),
	}); err != nil {
		p.logger.Debug().Err(err).Msg("metric publish failed")
	}

	p.logger.Info().
		Str("event_id", ev.EventID).
		Str("channel", string(ev.Channel)).
		Str("customer_id", res.Customer.ID.String()).
		Str("category", string(outcome.Decision.Category)).
		Str("priority", string(outcome.Decision.Priority)).
		Bool("escalated", outcome.Decision.Escalate).
		Dur("elapsed", elapsed).
		Msg("event processed")

	return outcome, nil
}

func (p *Processor) handleResolved(ctx context.Context, ev *models.InboundEvent, res *identity.Resolution) (*Outcome, error) {
	text := ev.Text()

	inbound := &models.Message{
		ConversationID:   res.Conversation.ID,
		Channel:          ev.Channel,
		Direction:        models.DirectionInbound,
		Role:             models.RoleCustomer,
		Content:          text,
		ChannelMessageID: ev.ChannelMessageID,
	}
	if err := p.withRetry(ctx, "append inbound message", func() error {
		_, err := p.store.AppendMessage(ctx, inbound)
		return err
	}); err != nil {
		return nil, err
	}

	decision, err := p.decider.Decide(ctx, engine.DecisionInput{
		Text:         text,
		Channel:      string(ev.Channel),
		MustEscalate: ev.MustEscalate,
	})
	if err != nil {
		return nil, fmt.Errorf("decision: %w", err)
	}

	st, err := p.states.LoadState(ctx, res.Customer.ID.String())
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if st == nil {
		fresh := state.New(res.Customer.ID.String())
		st = &fresh
	}
	next := state.Update(*st, state.Event{
		Channel:  ev.Channel,
		Text:     text,
		Escalate: decision.Escalate,
	})
	if err := p.states.SaveState(ctx, next); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	latest := next.SentimentScores[len(next.SentimentScores)-1]
	metrics.SentimentScore.Observe(latest)
	if err := p.store.SetConversationSentiment(ctx, res.Conversation.ID, latest); err != nil {
		p.logger.Warn().Err(err).Msg("sentiment update failed")
	}

	ticket, err := p.createTicket(ctx, ev, res, decision)
	if err != nil {
		return nil, err
	}

	if decision.Escalate {
		if err := p.escalate(ctx, ev, res, ticket, decision); err != nil {
			return nil, err
		}
	}

	reply, err := p.respond(ctx, ev, res, ticket, decision)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Customer: res.Customer,
		Ticket:   ticket,
		Decision: decision,
		Reply:    reply,
		State:    next.Summarize(3),
	}, nil
}

func (p *Processor) createTicket(ctx context.Context, ev *models.InboundEvent, res *identity.Resolution, decision engine.Result) (*models.Ticket, error) {
	ticket := &models.Ticket{
		CustomerID:     res.Customer.ID,
		ConversationID: res.Conversation.ID,
		SourceChannel:  ev.Channel,
		Category:       string(decision.Category),
		Priority:       string(decision.Priority),
	}
	if err := p.withRetry(ctx, "create ticket", func() error {
		created, err := p.store.CreateTicket(ctx, ticket)
		if err == nil {
			ticket = created
		}
		return err
	}); err != nil {
		return nil, err
	}
	metrics.TicketsCreated.WithLabelValues(string(decision.Category)).Inc()
	return ticket, nil
}

func (p *Processor) escalate(ctx context.Context, ev *models.InboundEvent, res *identity.Resolution, ticket *models.Ticket, decision engine.Result) error {
	notes := strings.Join(decision.Reasons, "; ")
	if err := p.store.UpdateTicketStatus(ctx, ticket.ID, models.TicketEscalated, notes); err != nil {
		return fmt.Errorf("escalate ticket: %w", err)
	}
	ticket.Status = models.TicketEscalated
	if err := p.store.UpdateConversationStatus(ctx, res.Conversation.ID, models.ConversationEscalated); err != nil {
		return fmt.Errorf("escalate conversation: %w", err)
	}

	metrics.Escalations.WithLabelValues(string(ev.Channel), string(decision.Priority)).Inc()
	return p.producer.PublishEscalation(ctx, kafka.EscalationEvent{
		TicketID: ticket.ID.String(),
		Reason:   notes,
		Reasons:  decision.Reasons,
		Urgency:  string(decision.Priority),
		Channel:  string(ev.Channel),
	})
}

func (p *Processor) respond(ctx context.Context, ev *models.InboundEvent, res *identity.Resolution, ticket *models.Ticket, decision engine.Result) (string, error) {
	body := replyBody(decision)
	reply := compose.Compose(body, ev.Channel, ticket.ID.String())

	outbound := &models.Message{
		ConversationID: res.Conversation.ID,
		Channel:        ev.Channel,
		Direction:      models.DirectionOutbound,
		Role:           models.RoleAgent,
		Content:        reply,
	}
	if err := p.withRetry(ctx, "append outbound message", func() error {
		_, err := p.store.AppendMessage(ctx, outbound)
		return err
	}); err != nil {
		return "", err
	}

	if err := p.producer.PublishOutbound(ctx, identifierOf(ev), kafka.OutboundMessage{
		Channel:     string(ev.Channel),
		ToEmail:     ev.CustomerEmail,
		ToPhone:     ev.CustomerPhone,
		Subject:     ev.Subject,
		Body:        reply,
		ReferenceID: ticket.ID.String(),
	}); err != nil {
		return "", fmt.Errorf("publish outbound: %w", err)
	}
	return reply, nil
}

// replyBody picks the acknowledgment text for a decision. The wording is
// fixed per category so replies stay auditable.
func replyBody(decision engine.Result) string {
	if decision.Escalate {
		return "Thank you for reaching out. Your request has been escalated to our specialist team and a support agent will contact you shortly."
	}
	switch decision.Category {
	case engine.CategoryBilling:
		return "Thank you for contacting us about your billing question. Our team is reviewing your account and will follow up with the details shortly."
	case engine.CategoryTechnical:
		return "Thank you for the report. Our technical team is looking into the issue and will update you as soon as we know more."
	default:
		return "Thank you for your message. We have logged your request and will get back to you shortly."
	}
}

// apologize sends a best-effort apology after a processing failure and
// records the failure as an escalation so a human follows up. Errors here
// are logged, never propagated: the original failure is what matters.
func (p *Processor) apologize(ctx context.Context, ev *models.InboundEvent, res *identity.Resolution) {
	if res == nil || res.Customer == nil {
		return
	}

	reply := compose.Compose(apologyBody, ev.Channel, "")
	if err := p.producer.PublishOutbound(ctx, identifierOf(ev), kafka.OutboundMessage{
		Channel: string(ev.Channel),
		ToEmail: ev.CustomerEmail,
		ToPhone: ev.CustomerPhone,
		Body:    reply,
	}); err != nil {
		p.logger.Error().Err(err).Str("event_id", ev.EventID).Msg("apology delivery failed")
	}

	if err := p.producer.PublishEscalation(ctx, kafka.EscalationEvent{
		Reason:  "processing failure",
		Urgency: string(engine.PriorityP2),
		Channel: string(ev.Channel),
	}); err != nil {
		p.logger.Error().Err(err).Str("event_id", ev.EventID).Msg("failure escalation publish failed")
	}
}

func (p *Processor) resolveWithRetry(ctx context.Context, ev *models.InboundEvent) (*identity.Resolution, error) {
	var res *identity.Resolution
	err := p.withRetry(ctx, "resolve identity", func() error {
		var err error
		res, err = p.resolver.Resolve(ctx, ev)
		return err
	})
	return res, err
}

// withRetry runs a store operation with bounded retries and linear
// backoff. Permanent errors abort immediately.
func (p *Processor) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= storeAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, models.ErrUnresolvable) || errors.Is(err, models.ErrMalformedEvent) {
			return err
		}
		if attempt < storeAttempts {
			p.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("retrying store operation")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (p *Processor) deadLetterEvent(ctx context.Context, ev *models.InboundEvent, cause error) {
	raw, _ := json.Marshal(ev)
	channel := string(ev.Channel)
	if channel == "" {
		channel = "unknown"
	}
	p.deadLetter(ctx, channel, deadLetterReason(cause), raw, cause)
}

func (p *Processor) deadLetter(ctx context.Context, channel, reason string, raw []byte, cause error) {
	metrics.MessagesProcessed.WithLabelValues(channel, "dead_letter").Inc()
	metrics.DeadLettered.WithLabelValues(reason).Inc()
	if err := p.producer.PublishDeadLetter(ctx, kafka.DeadLetter{
		Reason: reason,
		Error:  cause.Error(),
		Event:  raw,
	}); err != nil {
		p.logger.Error().Err(err).Str("reason", reason).Msg("dead-letter publish failed")
	}
	p.logger.Error().Err(cause).Str("reason", reason).Msg("event dead-lettered")
}

func deadLetterReason(err error) string {
	switch {
	case errors.Is(err, models.ErrMalformedEvent):
		return "malformed"
	case errors.Is(err, models.ErrUnresolvable):
		return "unresolvable"
	default:
		return "processing_failure"
	}
}

func identifierOf(ev *models.InboundEvent) string {
	if ev.CustomerEmail != "" {
		return ev.CustomerEmail
	}
	return ev.CustomerPhone
}
