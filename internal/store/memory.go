package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/deskroute/deskroute/internal/models"
	"github.com/deskroute/deskroute/internal/state"
)

// MemoryStore is an in-memory DataStore used by tests. It honors the same
// contracts as the SQL stores, including conflict-safe customer creation.
type MemoryStore struct {
	mu            sync.Mutex
	customers     map[uuid.UUID]*models.Customer
	identifiers   map[string]uuid.UUID // "type:value" -> customer id
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID][]models.Message
	tickets       map[uuid.UUID]*models.Ticket
	sentiments    map[uuid.UUID]float64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:     make(map[uuid.UUID]*models.Customer),
		identifiers:   make(map[string]uuid.UUID),
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID][]models.Message),
		tickets:       make(map[uuid.UUID]*models.Ticket),
		sentiments:    make(map[uuid.UUID]float64),
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func identifierKey(idType models.IdentifierType, value string) string {
	return string(idType) + ":" + value
}

func (s *MemoryStore) FindCustomerByEmail(_ context.Context, email string) (*models.Customer, error) {
	return s.findByIdentifier(models.IdentifierEmail, email), nil
}

func (s *MemoryStore) FindCustomerByPhone(_ context.Context, phone string) (*models.Customer, error) {
	return s.findByIdentifier(models.IdentifierPhone, phone), nil
}

func (s *MemoryStore) findByIdentifier(idType models.IdentifierType, value string) *models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.identifiers[identifierKey(idType, value)]; ok {
		c := *s.customers[id]
		return &c
	}
	return nil
}

func (s *MemoryStore) CreateCustomer(_ context.Context, email, phone, name string) (*models.Customer, error) {
	idType, idValue := primaryIdentifier(email, phone)
	if idValue == "" {
		return nil, models.ErrUnresolvable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := identifierKey(idType, idValue)
	if existing, ok := s.identifiers[key]; ok {
		c := *s.customers[existing]
		return &c, nil
	}

	now := time.Now().UTC()
	customer := &models.Customer{
		ID:        uuid.New(),
		Email:     email,
		Phone:     phone,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.customers[customer.ID] = customer
	s.identifiers[key] = customer.ID

	c := *customer
	return &c, nil
}

func (s *MemoryStore) GetCustomer(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.customers[id]; ok {
		out := *c
		return &out, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindActiveConversation(_ context.Context, customerID uuid.UUID, window time.Duration) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-window)
	var latest *models.Conversation
	for _, conv := range s.conversations {
		if conv.CustomerID != customerID || conv.Status != models.ConversationActive {
			continue
		}
		if !conv.StartedAt.After(cutoff) {
			continue
		}
		if latest == nil || conv.StartedAt.After(latest.StartedAt) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (s *MemoryStore) CreateConversation(_ context.Context, customerID uuid.UUID, channel models.Channel) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &models.Conversation{
		ID:             uuid.New(),
		CustomerID:     customerID,
		InitialChannel: channel,
		Status:         models.ConversationActive,
		StartedAt:      time.Now().UTC(),
	}
	s.conversations[conv.ID] = conv

	out := *conv
	return &out, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[id]; ok {
		out := *conv
		return &out, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpdateConversationStatus(_ context.Context, id uuid.UUID, status models.ConversationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[id]; ok {
		conv.Status = status
	}
	return nil
}

func (s *MemoryStore) SetConversationSentiment(_ context.Context, id uuid.UUID, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiments[id] = score
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	return msg, nil
}

func (s *MemoryStore) LoadRecentMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) CreateTicket(_ context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *ticket
	created.ID = uuid.New()
	created.Status = models.TicketOpen
	created.CreatedAt = time.Now().UTC()
	s.tickets[created.ID] = &created

	out := created
	return &out, nil
}

func (s *MemoryStore) GetTicket(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket, ok := s.tickets[id]; ok {
		out := *ticket
		return &out, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpdateTicketStatus(_ context.Context, id uuid.UUID, status models.TicketStatus, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket, ok := s.tickets[id]; ok {
		ticket.Status = status
		ticket.ResolutionNotes = notes
		if status == models.TicketResolved {
			now := time.Now().UTC()
			ticket.ResolvedAt = &now
		}
	}
	return nil
}

// MemoryStateStore is an in-process stand-in for the Redis state cache,
// used by tests and store-only development setups.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]state.State
	seen   map[string]bool
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]state.State),
		seen:   make(map[string]bool),
	}
}

func (s *MemoryStateStore) LoadState(_ context.Context, customerID string) (*state.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[customerID]; ok {
		return &st, nil
	}
	return nil, nil
}

func (s *MemoryStateStore) SaveState(_ context.Context, st state.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.CustomerID] = st
	return nil
}

func (s *MemoryStateStore) MarkEventProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *MemoryStore) ChannelMetrics(context.Context) ([]ChannelMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byChannel := make(map[models.Channel]*ChannelMetric)
	for _, conv := range s.conversations {
		m, ok := byChannel[conv.InitialChannel]
		if !ok {
			m = &ChannelMetric{Channel: conv.InitialChannel}
			byChannel[conv.InitialChannel] = m
		}
		m.TotalConversations++
		m.AvgSentiment += s.sentiments[conv.ID]
		if conv.Status == models.ConversationEscalated {
			m.Escalations++
		}
	}
	out := make([]ChannelMetric, 0, len(byChannel))
	for _, m := range byChannel {
		if m.TotalConversations > 0 {
			m.AvgSentiment /= float64(m.TotalConversations)
		}
		out = append(out, *m)
	}
	return out, nil
}
