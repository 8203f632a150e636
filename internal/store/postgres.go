package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/deskroute/deskroute/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const customerColumns = "id, email, phone, name, created_at, updated_at"

// FindCustomerByEmail retrieves a customer by email identifier.
func (s *PostgresStore) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return s.findCustomerByIdentifier(ctx, models.IdentifierEmail, email)
}

// FindCustomerByPhone retrieves a customer by phone identifier.
func (s *PostgresStore) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	return s.findCustomerByIdentifier(ctx, models.IdentifierPhone, phone)
}

func (s *PostgresStore) findCustomerByIdentifier(ctx context.Context, idType models.IdentifierType, value string) (*models.Customer, error) {
	customer := &models.Customer{}
	err := s.pool.QueryRow(ctx, `
		SELECT c.id, c.email, c.phone, c.name, c.created_at, c.updated_at
		FROM customers c
		JOIN customer_identifiers ci ON ci.customer_id = c.id
		WHERE ci.identifier_type = $1 AND ci.identifier_value = $2
	`, string(idType), value).Scan(
		&customer.ID,
		&customer.Email,
		&customer.Phone,
		&customer.Name,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID.
func (s *PostgresStore) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer := &models.Customer{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE id = $1
	`, id).Scan(
		&customer.ID,
		&customer.Email,
		&customer.Phone,
		&customer.Name,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return customer, nil
}

// CreateCustomer creates a customer keyed by its primary identifier.
// The insert is conflict-safe: when another writer registered the same
// identifier first, the transaction is abandoned and the existing
// customer is returned, so duplicate-identifier races converge.
func (s *PostgresStore) CreateCustomer(ctx context.Context, email, phone, name string) (*models.Customer, error) {
	idType, idValue := primaryIdentifier(email, phone)
	if idValue == "" {
		return nil, models.ErrUnresolvable
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	customer := &models.Customer{}
	err = tx.QueryRow(ctx, `
		INSERT INTO customers (email, phone, name)
		VALUES ($1, $2, $3)
		RETURNING `+customerColumns+`
	`, email, phone, name).Scan(
		&customer.ID,
		&customer.Email,
		&customer.Phone,
		&customer.Name,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO customer_identifiers (customer_id, identifier_type, identifier_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (identifier_type, identifier_value) DO NOTHING
	`, customer.ID, string(idType), idValue)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Lost the race: another writer owns this identifier. The
		// deferred rollback discards our customer row.
		return s.findCustomerByIdentifier(ctx, idType, idValue)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return customer, nil
}

func primaryIdentifier(email, phone string) (models.IdentifierType, string) {
	if email != "" {
		return models.IdentifierEmail, email
	}
	return models.IdentifierPhone, phone
}

const conversationColumns = "id, customer_id, initial_channel, status, started_at"

// FindActiveConversation retrieves the customer's active conversation
// started within the continuity window, if any.
func (s *PostgresStore) FindActiveConversation(ctx context.Context, customerID uuid.UUID, window time.Duration) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE customer_id = $1 AND status = 'active' AND started_at > NOW() - $2::interval
		ORDER BY started_at DESC LIMIT 1
	`, customerID, window).Scan(
		&conv.ID,
		&conv.CustomerID,
		&conv.InitialChannel,
		&conv.Status,
		&conv.StartedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// CreateConversation opens a new active conversation tagged with the
// arriving channel.
func (s *PostgresStore) CreateConversation(ctx context.Context, customerID uuid.UUID, channel models.Channel) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (customer_id, initial_channel, status)
		VALUES ($1, $2, 'active')
		RETURNING `+conversationColumns+`
	`, customerID, string(channel)).Scan(
		&conv.ID,
		&conv.CustomerID,
		&conv.InitialChannel,
		&conv.Status,
		&conv.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations WHERE id = $1
	`, id).Scan(
		&conv.ID,
		&conv.CustomerID,
		&conv.InitialChannel,
		&conv.Status,
		&conv.StartedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// UpdateConversationStatus transitions a conversation's status.
func (s *PostgresStore) UpdateConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET status = $1 WHERE id = $2
	`, string(status), id)
	return err
}

// SetConversationSentiment records the running sentiment average used by
// channel analytics.
func (s *PostgresStore) SetConversationSentiment(ctx context.Context, id uuid.UUID, score float64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET sentiment_score = $1 WHERE id = $2
	`, score, id)
	return err
}

// AppendMessage stores a message. The ID (ULID) and timestamp are assigned
// here if unset; stored messages are immutable.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages
			(id, conversation_id, channel, direction, role, content, channel_message_id, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, msg.ID, msg.ConversationID, string(msg.Channel), string(msg.Direction),
		string(msg.Role), msg.Content, msg.ChannelMessageID, msg.LatencyMS, msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// LoadRecentMessages retrieves the most recent messages of a conversation
// in chronological order.
func (s *PostgresStore) LoadRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, channel, direction, role, content, channel_message_id, latency_ms, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Channel,
			&msg.Direction,
			&msg.Role,
			&msg.Content,
			&msg.ChannelMessageID,
			&msg.LatencyMS,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

const ticketColumns = "id, customer_id, conversation_id, source_channel, category, priority, status, resolution_notes, created_at, resolved_at"

// CreateTicket creates a ticket record for a processed message.
func (s *PostgresStore) CreateTicket(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	created := &models.Ticket{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tickets (customer_id, conversation_id, source_channel, category, priority, status)
		VALUES ($1, $2, $3, $4, $5, 'open')
		RETURNING `+ticketColumns+`
	`, ticket.CustomerID, ticket.ConversationID, string(ticket.SourceChannel),
		ticket.Category, ticket.Priority).Scan(
		&created.ID,
		&created.CustomerID,
		&created.ConversationID,
		&created.SourceChannel,
		&created.Category,
		&created.Priority,
		&created.Status,
		&created.ResolutionNotes,
		&created.CreatedAt,
		&created.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetTicket retrieves a ticket by ID.
func (s *PostgresStore) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE id = $1
	`, id).Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.ConversationID,
		&ticket.SourceChannel,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.ResolutionNotes,
		&ticket.CreatedAt,
		&ticket.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ticket, nil
}

// UpdateTicketStatus transitions a ticket and stamps resolved_at for
// terminal states.
func (s *PostgresStore) UpdateTicketStatus(ctx context.Context, id uuid.UUID, status models.TicketStatus, notes string) error {
	if status == models.TicketResolved {
		_, err := s.pool.Exec(ctx, `
			UPDATE tickets SET status = $1, resolution_notes = $2, resolved_at = NOW()
			WHERE id = $3
		`, string(status), notes, id)
		return err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE tickets SET status = $1, resolution_notes = $2 WHERE id = $3
	`, string(status), notes, id)
	return err
}

// ChannelMetrics aggregates the last 24 hours of conversations per channel.
func (s *PostgresStore) ChannelMetrics(ctx context.Context) ([]ChannelMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT initial_channel,
		       COUNT(*),
		       COALESCE(AVG(sentiment_score), 0),
		       COUNT(*) FILTER (WHERE status = 'escalated')
		FROM conversations
		WHERE started_at > NOW() - INTERVAL '24 hours'
		GROUP BY initial_channel
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChannelMetric
	for rows.Next() {
		var m ChannelMetric
		if err := rows.Scan(&m.Channel, &m.TotalConversations, &m.AvgSentiment, &m.Escalations); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
