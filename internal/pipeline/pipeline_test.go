package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskroute/deskroute/internal/engine"
	"github.com/deskroute/deskroute/internal/kafka"
	"github.com/deskroute/deskroute/internal/models"
	"github.com/deskroute/deskroute/internal/store"
)

type fakePublisher struct {
	mu          sync.Mutex
	outbound    []kafka.OutboundMessage
	escalations []kafka.EscalationEvent
	metrics     []kafka.MetricEvent
	deadLetters []kafka.DeadLetter
	outboundErr error
}

func (f *fakePublisher) PublishOutbound(_ context.Context, _ string, msg kafka.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outboundErr != nil && msg.ReferenceID != "" {
		return f.outboundErr
	}
	f.outbound = append(f.outbound, msg)
	return nil
}

func (f *fakePublisher) PublishEscalation(_ context.Context, ev kafka.EscalationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalations = append(f.escalations, ev)
	return nil
}

func (f *fakePublisher) PublishMetric(_ context.Context, ev kafka.MetricEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = append(f.metrics, ev)
	return nil
}

func (f *fakePublisher) PublishDeadLetter(_ context.Context, dl kafka.DeadLetter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadLetters = append(f.deadLetters, dl)
	return nil
}

func newTestProcessor() (*Processor, *store.MemoryStore, *store.MemoryStateStore, *fakePublisher) {
	ds := store.NewMemoryStore()
	states := store.NewMemoryStateStore()
	pub := &fakePublisher{}
	proc := NewProcessor(ds, states, engine.New(engine.DefaultRules()), pub, zerolog.Nop())
	return proc, ds, states, pub
}

func event(id, email, content string) *models.InboundEvent {
	return &models.InboundEvent{
		EventID:       id,
		Channel:       models.ChannelEmail,
		CustomerEmail: email,
		Content:       content,
		ReceivedAt:    time.Now().UTC(),
	}
}

func TestProcessEventHappyPath(t *testing.T) {
	proc, ds, _, pub := newTestProcessor()
	ctx := context.Background()

	out, err := proc.ProcessEvent(ctx, event("ev-1", "ana@example.com", "I was charged twice on my invoice"))
	require.NoError(t, err)
	require.NotNil(t, out.Ticket)

	assert.Equal(t, engine.CategoryBilling, out.Decision.Category)
	assert.False(t, out.Duplicate)
	assert.Contains(t, out.Reply, "Dear Customer,")
	assert.Contains(t, out.Reply, "Reference: "+out.Ticket.ID.String())
	assert.Equal(t, 1, out.State.MessageCount)

	// Inbound and outbound both captured durably.
	msgs, err := ds.LoadRecentMessages(ctx, out.Ticket.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, models.DirectionOutbound, msgs[1].Direction)

	require.Len(t, pub.outbound, 1)
	assert.Equal(t, "ana@example.com", pub.outbound[0].ToEmail)
	require.Len(t, pub.metrics, 1)
	assert.Equal(t, "message_processed", pub.metrics[0].EventType)
}

func TestProcessEventDuplicateDelivery(t *testing.T) {
	proc, _, _, pub := newTestProcessor()
	ctx := context.Background()

	first, err := proc.ProcessEvent(ctx, event("ev-dup", "ben@example.com", "hello"))
	require.NoError(t, err)
	require.NotNil(t, first.Ticket)

	second, err := proc.ProcessEvent(ctx, event("ev-dup", "ben@example.com", "hello"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Nil(t, second.Ticket)

	// Redelivery must not produce a second reply.
	assert.Len(t, pub.outbound, 1)
}

func TestProcessEventEscalation(t *testing.T) {
	proc, ds, _, pub := newTestProcessor()
	ctx := context.Background()

	out, err := proc.ProcessEvent(ctx, event("ev-esc", "cara@example.com",
		"There was unauthorized access to my account, this is a security breach"))
	require.NoError(t, err)

	assert.True(t, out.Decision.Escalate)
	assert.Equal(t, engine.PriorityP1, out.Decision.Priority)
	assert.Equal(t, models.TicketEscalated, out.Ticket.Status)

	conv, err := ds.GetConversation(ctx, out.Ticket.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationEscalated, conv.Status)

	require.Len(t, pub.escalations, 1)
	assert.Equal(t, out.Ticket.ID.String(), pub.escalations[0].TicketID)
	assert.Equal(t, "P1", pub.escalations[0].Urgency)
	assert.Contains(t, pub.escalations[0].Reasons, engine.ReasonSecurity)
}

func TestProcessEventUnresolvableDeadLetters(t *testing.T) {
	proc, _, _, pub := newTestProcessor()

	ev := &models.InboundEvent{
		EventID:    "ev-anon",
		Channel:    models.ChannelWebForm,
		Content:    "no identity attached to this message",
		ReceivedAt: time.Now().UTC(),
	}
	_, err := proc.ProcessEvent(context.Background(), ev)
	require.ErrorIs(t, err, models.ErrUnresolvable)

	require.Len(t, pub.deadLetters, 1)
	assert.Equal(t, "unresolvable", pub.deadLetters[0].Reason)
	assert.Empty(t, pub.outbound)
}

func TestProcessMalformedPayloadDeadLetters(t *testing.T) {
	proc, _, _, pub := newTestProcessor()

	err := proc.Process(context.Background(), []byte("{not json"))
	require.ErrorIs(t, err, models.ErrMalformedEvent)
	require.Len(t, pub.deadLetters, 1)
	assert.Equal(t, "malformed", pub.deadLetters[0].Reason)
}

func TestProcessEventStateAccumulatesAcrossEvents(t *testing.T) {
	proc, _, _, _ := newTestProcessor()
	ctx := context.Background()

	_, err := proc.ProcessEvent(ctx, event("ev-s1", "dan@example.com", "the invoice looks wrong"))
	require.NoError(t, err)

	whatsapp := event("ev-s2", "dan@example.com", "still waiting, this is frustrating")
	whatsapp.Channel = models.ChannelWhatsApp
	out, err := proc.ProcessEvent(ctx, whatsapp)
	require.NoError(t, err)

	assert.Equal(t, 2, out.State.MessageCount)
	assert.Equal(t, 1, out.State.ChannelSwitches)
	assert.Contains(t, out.State.TopTopics, "billing")
}

func TestProcessEventFailureTriggersApology(t *testing.T) {
	ds := store.NewMemoryStore()
	pub := &fakePublisher{outboundErr: errors.New("broker unavailable")}
	proc := NewProcessor(ds, store.NewMemoryStateStore(), engine.New(engine.DefaultRules()), pub, zerolog.Nop())

	_, err := proc.ProcessEvent(context.Background(), event("ev-fail", "eve@example.com", "hello"))
	require.Error(t, err)

	// The ticket reply failed, so the customer gets the apology instead
	// and the failure is escalated and dead-lettered.
	require.Len(t, pub.outbound, 1)
	assert.True(t, strings.Contains(pub.outbound[0].Body, "sorry"))
	require.Len(t, pub.escalations, 1)
	assert.Equal(t, "processing failure", pub.escalations[0].Reason)
	require.Len(t, pub.deadLetters, 1)
}

func TestProcessEventMustEscalateOverride(t *testing.T) {
	proc, _, _, pub := newTestProcessor()

	ev := event("ev-override", "fay@example.com", "just a quick question about widgets")
	ev.MustEscalate = true
	out, err := proc.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.True(t, out.Decision.Escalate)
	assert.Empty(t, out.Decision.Reasons)
	require.Len(t, pub.escalations, 1)
}
