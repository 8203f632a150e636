package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/deskroute/deskroute/internal/models"
)

// SQLiteStore is the single-file DataStore used for local development.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/deskroute.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/deskroute.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS customer_identifiers (
		customer_id TEXT NOT NULL,
		identifier_type TEXT NOT NULL,
		identifier_value TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (identifier_type, identifier_value)
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		initial_channel TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		sentiment_score REAL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		direction TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		channel_message_id TEXT NOT NULL DEFAULT '',
		latency_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		source_channel TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'P3',
		status TEXT NOT NULL DEFAULT 'open',
		resolution_notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		resolved_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_customer ON conversations(customer_id, started_at);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindCustomerByEmail retrieves a customer by email identifier.
func (s *SQLiteStore) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return s.findCustomerByIdentifier(ctx, models.IdentifierEmail, email)
}

// FindCustomerByPhone retrieves a customer by phone identifier.
func (s *SQLiteStore) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	return s.findCustomerByIdentifier(ctx, models.IdentifierPhone, phone)
}

func (s *SQLiteStore) findCustomerByIdentifier(ctx context.Context, idType models.IdentifierType, value string) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.email, c.phone, c.name, c.created_at, c.updated_at
		FROM customers c
		JOIN customer_identifiers ci ON ci.customer_id = c.id
		WHERE ci.identifier_type = ? AND ci.identifier_value = ?
	`, string(idType), value)
	return scanCustomer(row)
}

// GetCustomer retrieves a customer by ID.
func (s *SQLiteStore) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, phone, name, created_at, updated_at FROM customers WHERE id = ?
	`, id.String())
	return scanCustomer(row)
}

func scanCustomer(row *sql.Row) (*models.Customer, error) {
	customer := &models.Customer{}
	var idStr string
	err := row.Scan(&idStr, &customer.Email, &customer.Phone, &customer.Name, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	customer.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// CreateCustomer creates a customer keyed by its primary identifier.
// INSERT OR IGNORE on the identifier makes duplicate-identifier races
// converge to one customer.
func (s *SQLiteStore) CreateCustomer(ctx context.Context, email, phone, name string) (*models.Customer, error) {
	idType, idValue := primaryIdentifier(email, phone)
	if idValue == "" {
		return nil, models.ErrUnresolvable
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := uuid.New().String()
	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO customers (id, email, phone, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, email, phone, name, now, now); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO customer_identifiers (customer_id, identifier_type, identifier_value)
		VALUES (?, ?, ?)
	`, id, string(idType), idValue)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Identifier already owned; drop our row and return the owner.
		return s.findCustomerByIdentifier(ctx, idType, idValue)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetCustomer(ctx, uuid.MustParse(id))
}

// FindActiveConversation retrieves the customer's active conversation
// started within the continuity window, if any.
func (s *SQLiteStore) FindActiveConversation(ctx context.Context, customerID uuid.UUID, window time.Duration) (*models.Conversation, error) {
	cutoff := time.Now().UTC().Add(-window)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, initial_channel, status, started_at
		FROM conversations
		WHERE customer_id = ? AND status = 'active' AND started_at > ?
		ORDER BY started_at DESC LIMIT 1
	`, customerID.String(), cutoff)
	return scanConversation(row)
}

// CreateConversation opens a new active conversation tagged with the
// arriving channel.
func (s *SQLiteStore) CreateConversation(ctx context.Context, customerID uuid.UUID, channel models.Channel) (*models.Conversation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, customer_id, initial_channel, status, started_at)
		VALUES (?, ?, ?, 'active', ?)
	`, id, customerID.String(), string(channel), now)
	if err != nil {
		return nil, err
	}
	return s.GetConversation(ctx, uuid.MustParse(id))
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, initial_channel, status, started_at
		FROM conversations WHERE id = ?
	`, id.String())
	return scanConversation(row)
}

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var idStr, customerStr string
	err := row.Scan(&idStr, &customerStr, &conv.InitialChannel, &conv.Status, &conv.StartedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if conv.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if conv.CustomerID, err = uuid.Parse(customerStr); err != nil {
		return nil, err
	}
	return conv, nil
}

// UpdateConversationStatus transitions a conversation's status.
func (s *SQLiteStore) UpdateConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = ? WHERE id = ?
	`, string(status), id.String())
	return err
}

// SetConversationSentiment records the running sentiment average.
func (s *SQLiteStore) SetConversationSentiment(ctx context.Context, id uuid.UUID, score float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET sentiment_score = ? WHERE id = ?
	`, score, id.String())
	return err
}

// AppendMessage stores a message, assigning the ULID and timestamp if
// unset.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, conversation_id, channel, direction, role, content, channel_message_id, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID.String(), string(msg.Channel), string(msg.Direction),
		string(msg.Role), msg.Content, msg.ChannelMessageID, msg.LatencyMS, msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// LoadRecentMessages retrieves the most recent messages of a conversation
// in chronological order.
func (s *SQLiteStore) LoadRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, channel, direction, role, content, channel_message_id, latency_ms, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC LIMIT ?
		)
		ORDER BY created_at ASC
	`, conversationID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var convStr string
		err := rows.Scan(&msg.ID, &convStr, &msg.Channel, &msg.Direction, &msg.Role,
			&msg.Content, &msg.ChannelMessageID, &msg.LatencyMS, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		if msg.ConversationID, err = uuid.Parse(convStr); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateTicket creates a ticket record for a processed message.
func (s *SQLiteStore) CreateTicket(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, customer_id, conversation_id, source_channel, category, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'open', ?)
	`, id, ticket.CustomerID.String(), ticket.ConversationID.String(),
		string(ticket.SourceChannel), ticket.Category, ticket.Priority, now)
	if err != nil {
		return nil, err
	}
	return s.GetTicket(ctx, uuid.MustParse(id))
}

// GetTicket retrieves a ticket by ID.
func (s *SQLiteStore) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	var idStr, customerStr, convStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, conversation_id, source_channel, category, priority, status, resolution_notes, created_at, resolved_at
		FROM tickets WHERE id = ?
	`, id.String()).Scan(&idStr, &customerStr, &convStr, &ticket.SourceChannel,
		&ticket.Category, &ticket.Priority, &ticket.Status, &ticket.ResolutionNotes,
		&ticket.CreatedAt, &ticket.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if ticket.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if ticket.CustomerID, err = uuid.Parse(customerStr); err != nil {
		return nil, err
	}
	if ticket.ConversationID, err = uuid.Parse(convStr); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicketStatus transitions a ticket and stamps resolved_at for
// terminal states.
func (s *SQLiteStore) UpdateTicketStatus(ctx context.Context, id uuid.UUID, status models.TicketStatus, notes string) error {
	if status == models.TicketResolved {
		_, err := s.db.ExecContext(ctx, `
			UPDATE tickets SET status = ?, resolution_notes = ?, resolved_at = ? WHERE id = ?
		`, string(status), notes, time.Now().UTC(), id.String())
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE tickets SET status = ?, resolution_notes = ? WHERE id = ?
	`, string(status), notes, id.String())
	return err
}

// ChannelMetrics aggregates the last 24 hours of conversations per channel.
func (s *SQLiteStore) ChannelMetrics(ctx context.Context) ([]ChannelMetric, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	rows, err := s.db.QueryContext(ctx, `
		SELECT initial_channel,
		       COUNT(*),
		       COALESCE(AVG(sentiment_score), 0),
		       SUM(CASE WHEN status = 'escalated' THEN 1 ELSE 0 END)
		FROM conversations
		WHERE started_at > ?
		GROUP BY initial_channel
	`, cutoff)
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
