// Package facade implements the thin REST glue in front of the
// orchestrator: POST /query and GET /conversations/{id}/messages, backed
// by a relational store with the obvious tables (spec.md §1).
package facade

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ConversationStore persists conversations, messages, and queries.
// Grounded on the gateway's internal/db driver-selection pattern: the
// caller names the driver, Postgres via lib/pq or SQLite via
// mattn/go-sqlite3 (cmd/facade reads AGENTMESH_DB_DRIVER, default sqlite3).
type ConversationStore struct {
	db     *sql.DB
	driver string
}

// StoredMessage is one row of the messages table.
type StoredMessage struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Open connects to dsn using driver ("postgres" or "sqlite3") and ensures
// the schema exists.
func Open(driver, dsn string) (*ConversationStore, error) {
	if dsn == "" && driver == "sqlite3" {
		dsn = "facade.db"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	store := &ConversationStore{db: db, driver: driver}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migrate %s database: %w", driver, err)
	}
	return store, nil
}

func (s *ConversationStore) migrate() error {
	// The obvious tables spec.md §1 gestures at without naming: a
	// conversation groups messages; a query records one orchestration
	// session's outcome.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// EnsureConversation inserts a conversation row if one doesn't already
// exist for id.
func (s *ConversationStore) EnsureConversation(ctx context.Context, id, username string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, username, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`, id, username, time.Now().UTC())
	if err != nil && s.driver == "sqlite3" {
		// SQLite's ON CONFLICT target differs only in dialect acceptance,
		// not semantics; this fallback keeps both drivers on one query
		// string where possible and degrades to insert-or-ignore here.
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO conversations (id, username, created_at) VALUES (?, ?, ?)`,
			id, username, time.Now().UTC())
	}
	return err
}

// RecordQuery inserts a queries row.
func (s *ConversationStore) RecordQuery(ctx context.Context, queryID, conversationID, status string) error {
	query := s.rebind(`INSERT INTO queries (id, conversation_id, status, created_at) VALUES ($1, $2, $3, $4)`)
	_, err := s.db.ExecContext(ctx, query, queryID, conversationID, status, time.Now().UTC())
	return err
}

// AppendMessage inserts a message row, used for both the user's original
// text and the orchestrator's assistant-role answer (spec.md §4.6: the
// orchestrator must persist the assistant message before query:completed).
func (s *ConversationStore) AppendMessage(ctx context.Context, id, conversationID, role, content string) error {
	query := s.rebind(`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`)
	_, err := s.db.ExecContext(ctx, query, id, conversationID, role, content, time.Now().UTC())
	return err
}

// PersistAnswer records an assistant-role message, implementing
// orchestrator.AnswerPersister so the orchestrator can write the answer
// before publishing query:completed (spec.md §4.6's ordering MUST).
func (s *ConversationStore) PersistAnswer(ctx context.Context, conversationID, answer string) error {
	return s.AppendMessage(ctx, uuid.New().String(), conversationID, "agent", answer)
}

// Messages returns every message for conversationID, oldest first.
func (s *ConversationStore) Messages(ctx context.Context, conversationID string) ([]StoredMessage, error) {
	query := s.rebind(`SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`)
	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// rebind rewrites $N placeholders to ? for sqlite3, which doesn't accept
// the Postgres placeholder syntax.
func (s *ConversationStore) rebind(query string) string {
	if s.driver != "sqlite3" {
		return query
	}
	out := make([]byte, 0, len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '1' && query[i+1] <= '9' {
			out = append(out, '?')
			i++
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// Close releases the underlying connection pool.
func (s *ConversationStore) Close() error {
	return s.db.Close()
}
