package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/clearcoat/paintdesk/message"
	"github.com/clearcoat/paintdesk/thread"
)

// PostgresStore persists thread transcripts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL configuration.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "paintdesk",
		SSLMode:  "disable",
	}
}

// NewPostgresStore creates a new PostgreSQL-based thread store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	if config == nil {
		config = DefaultPostgresConfig()
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.createTable(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS thread_messages (
		thread_id VARCHAR(255) NOT NULL,
		seq BIGSERIAL,
		payload JSONB NOT NULL,
		PRIMARY KEY (thread_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_thread_messages_thread_id ON thread_messages (thread_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Create stores a new transcript and returns its ID.
func (s *PostgresStore) Create(ctx context.Context, seed []*message.Message) (string, error) {
	id := thread.NewID()
	if err := s.insert(ctx, id, seed); err != nil {
		return "", err
	}
	return id, nil
}

// Append adds messages to an existing transcript.
func (s *PostgresStore) Append(ctx context.Context, id string, msgs ...*message.Message) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM thread_messages WHERE thread_id = $1)", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check thread: %w", err)
	}
	if !exists {
		return fmt.Errorf("thread %s not found", id)
	}
	return s.insert(ctx, id, msgs)
}

// Load returns the transcript messages in order.
func (s *PostgresStore) Load(ctx context.Context, id string) ([]*message.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM thread_messages WHERE thread_id = $1 ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	defer rows.Close()

	var msgs []*message.Message
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan thread message: %w", err)
		}
		var msg message.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode thread message: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read thread rows: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("thread %s not found", id)
	}
	return msgs, nil
}

// Delete removes the transcript. Unknown IDs are ignored.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM thread_messages WHERE thread_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) insert(ctx context.Context, id string, msgs []*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO thread_messages (thread_id, payload) VALUES ($1, $2)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal thread message: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id, payload); err != nil {
			return fmt.Errorf("failed to insert thread message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit thread messages: %w", err)
	}
	return nil
}
