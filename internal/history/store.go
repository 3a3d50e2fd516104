// Package history persists chat and test-generation sessions in a per-project
// SQLite database so conversations can be continued later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jeddict/jeddict/internal/llm"
)

// DBName is the database file inside the project data directory.
const DBName = "history.db"

// ErrNotFound is returned for an unknown session.
var ErrNotFound = errors.New("history: session not found")

// Kind tells what a session was used for.
type Kind string

const (
	KindChat Kind = "chat"
	KindTest Kind = "test"
)

// Session is a stored conversation.
type Session struct {
	ID           string
	Kind         Kind
	Title        string
	Model        string
	Subject      string // file the session is about, if any
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Messages     int
	InputTokens  int
	OutputTokens int
}

// Store is a history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(8000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            kind TEXT NOT NULL,
            title TEXT,
            model TEXT,
            subject TEXT,
            created_at INTEGER NOT NULL,
            updated_at INTEGER NOT NULL,
            input_tokens INTEGER NOT NULL DEFAULT 0,
            output_tokens INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
            seq INTEGER NOT NULL,
            role TEXT NOT NULL,
            content TEXT,
            tool_calls TEXT,
            tool_call_id TEXT,
            name TEXT,
            created_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(kind, updated_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create starts a new session.
func (s *Store) Create(ctx context.Context, kind Kind, title, model, subject string) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Model:     model,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, kind, title, model, subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, string(kind), title, model, subject, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Append adds msgs to the session and accumulates usage.
func (s *Store) Append(ctx context.Context, id string, msgs []llm.Message, usage llm.TokenUsage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now().UnixNano()
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ?, input_tokens = input_tokens + ?, output_tokens = output_tokens + ? WHERE id = ?`,
		now, usage.InputTokens, usage.OutputTokens, id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = ?`, id).Scan(&seq); err != nil {
		return err
	}
	for _, m := range msgs {
		seq++
		var calls sql.NullString
		if len(m.ToolCalls) > 0 {
			data, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return err
			}
			calls = sql.NullString{String: string(data), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, seq, role, content, tool_calls, tool_call_id, name, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, seq, string(m.Role), m.Content, calls, m.ToolCallID, m.Name, now)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return tx.Commit()
}

// Messages returns the stored conversation in order.
func (s *Store) Messages(ctx context.Context, id string) ([]llm.Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id, name FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []llm.Message
	for rows.Next() {
		var (
			m            llm.Message
			role         string
			calls        sql.NullString
			callID, name sql.NullString
		)
		if err := rows.Scan(&role, &m.Content, &calls, &callID, &name); err != nil {
			return nil, err
		}
		m.Role = llm.Role(role)
		m.ToolCallID = callID.String
		m.Name = name.String
		if calls.Valid {
			if err := json.Unmarshal([]byte(calls.String), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Responses returns the final assistant answers of the session, skipping
// intermediate tool requests.
func (s *Store) Responses(ctx context.Context, id string) ([]*llm.Response, error) {
	msgs, err := s.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []*llm.Response
	for _, m := range msgs {
		if m.Role == llm.RoleAssistant && len(m.ToolCalls) == 0 {
			out = append(out, &llm.Response{Message: m, FinishReason: llm.FinishStop})
		}
	}
	return out, nil
}

const sessionColumns = `s.id, s.kind, s.title, s.model, s.subject, s.created_at, s.updated_at, s.input_tokens, s.output_tokens,
    (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var (
		sess               Session
		kind               string
		title, model, subj sql.NullString
		created, updated   int64
	)
	err := row.Scan(&sess.ID, &kind, &title, &model, &subj, &created, &updated, &sess.InputTokens, &sess.OutputTokens, &sess.Messages)
	if err != nil {
		return nil, err
	}
	sess.Kind = Kind(kind)
	sess.Title, sess.Model, sess.Subject = title.String, model.String, subj.String
	sess.CreatedAt = time.Unix(0, created)
	sess.UpdatedAt = time.Unix(0, updated)
	return &sess, nil
}

// Get returns a session by id or unique id prefix.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ? OR s.id LIKE ? ORDER BY s.id = ? DESC LIMIT 2`,
		id, id+"%", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(found) == 0:
		return nil, ErrNotFound
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("session prefix %q is ambiguous", id)
	}
}

// Latest returns the most recently updated session of kind, optionally
// restricted to a subject.
func (s *Store) Latest(ctx context.Context, kind Kind, subject string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.kind = ?`
	args := []any{string(kind)}
	if subject != "" {
		query += ` AND s.subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY s.updated_at DESC LIMIT 1`
	sess, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// List returns up to limit sessions, most recent first.
func (s *Store) List(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s ORDER BY s.updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
