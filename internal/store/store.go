package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/deskroute/deskroute/internal/models"
)

// ChannelMetric is a 24h per-channel analytics row.
type ChannelMetric struct {
	Channel            models.Channel `json:"channel"`
	TotalConversations int64          `json:"total_conversations"`
	AvgSentiment       float64        `json:"avg_sentiment"`
	Escalations        int64          `json:"escalations"`
}

// DataStore defines the interface for persistent storage of customers,
// conversations, messages, and tickets. Both PostgresStore and SQLiteStore
// implement this interface. Lookups return (nil, nil) when no row matches.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Customer operations. CreateCustomer is conflict-safe on the
	// identifier value: concurrent creation from the same identifier
	// converges to one customer.
	FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, email, phone, name string) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)

	// Conversation operations
	FindActiveConversation(ctx context.Context, customerID uuid.UUID, window time.Duration) (*models.Conversation, error)
	CreateConversation(ctx context.Context, customerID uuid.UUID, channel models.Channel) (*models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	UpdateConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) error
	SetConversationSentiment(ctx context.Context, id uuid.UUID, score float64) error

	// Message operations
	AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	LoadRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)

	// Ticket operations
	CreateTicket(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, id uuid.UUID, status models.TicketStatus, notes string) error

	// Analytics
	ChannelMetrics(ctx context.Context) ([]ChannelMetric, error)
}
