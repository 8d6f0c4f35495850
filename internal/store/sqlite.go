package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteOptions tunes retry behaviour on lock contention.
type SQLiteOptions struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// DefaultSQLiteOptions returns the default retry settings.
func DefaultSQLiteOptions() SQLiteOptions {
	return SQLiteOptions{
		MaxRetries:     3,
		RetryBaseDelay: 50 * time.Millisecond,
	}
}

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	opts SQLiteOptions
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string, opts SQLiteOptions) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if opts.MaxRetries <= 0 {
		opts = DefaultSQLiteOptions()
	}

	store := &SQLiteStore{db: db, opts: opts}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS user_profiles (
		user_key TEXT PRIMARY KEY,
		profile_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		user_key TEXT NOT NULL,
		session_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		context_json TEXT NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_key, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_chat_sessions_user_created ON chat_sessions(user_key, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetProfile retrieves the profile for a user key.
func (s *SQLiteStore) GetProfile(ctx context.Context, userKey string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT profile_json, created_at, updated_at FROM user_profiles WHERE user_key = ?`, userKey)

	var profileJSON string
	var createdAt, updatedAt int64
	err := row.Scan(&profileJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	var profile domain.Profile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	profile.UserKey = userKey
	profile.CreatedAt = time.Unix(createdAt, 0)
	profile.UpdatedAt = time.Unix(updatedAt, 0)
	return &profile, nil
}

// UpsertProfile creates or updates a profile record.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	query := `
	INSERT INTO user_profiles (user_key, profile_json, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_key) DO UPDATE SET
		profile_json = excluded.profile_json,
		updated_at = excluded.updated_at`

	return s.retry(ctx, "upsert_profile", func() error {
		_, err := s.db.ExecContext(ctx, query,
			profile.UserKey, string(data),
			profile.CreatedAt.Unix(), profile.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		return nil
	})
}

// CreateChatSession inserts a new chat session.
func (s *SQLiteStore) CreateChatSession(ctx context.Context, session *domain.ChatSession) error {
	messagesJSON, contextJSON, err := encodeSession(session.Messages, session.Context)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO chat_sessions (
		user_key, session_id, display_name, messages_json, context_json,
		message_count, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	return s.retry(ctx, "create_chat_session", func() error {
		_, err := s.db.ExecContext(ctx, query,
			session.UserKey, session.ID, session.DisplayName,
			messagesJSON, contextJSON, len(session.Messages),
			session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert chat session: %w", err)
		}
		return nil
	})
}

// GetChatSession retrieves a chat session by user key and session id.
func (s *SQLiteStore) GetChatSession(ctx context.Context, userKey, sessionID string) (*domain.ChatSession, error) {
	query := `
		SELECT display_name, messages_json, context_json, created_at, updated_at
		FROM chat_sessions WHERE user_key = ? AND session_id = ?`

	row := s.db.QueryRowContext(ctx, query, userKey, sessionID)

	var displayName, messagesJSON, contextJSON string
	var createdAt, updatedAt int64
	err := row.Scan(&displayName, &messagesJSON, &contextJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chat session: %w", err)
	}

	session := &domain.ChatSession{
		ID:          sessionID,
		UserKey:     userKey,
		DisplayName: displayName,
		CreatedAt:   time.Unix(createdAt, 0),
		UpdatedAt:   time.Unix(updatedAt, 0),
	}
	if err := json.Unmarshal([]byte(messagesJSON), &session.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &session.Context); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return session, nil
}

// ListChatSessions returns the user's sessions, newest first.
func (s *SQLiteStore) ListChatSessions(ctx context.Context, userKey string) ([]domain.ChatSessionSummary, error) {
	query := `
		SELECT session_id, display_name, message_count, created_at, updated_at
		FROM chat_sessions WHERE user_key = ?
		ORDER BY created_at DESC, session_id`

	rows, err := s.db.QueryContext(ctx, query, userKey)
	if err != nil {
		return nil, fmt.Errorf("query chat sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close chat session rows", "error", closeErr)
		}
	}()

	summaries := []domain.ChatSessionSummary{}
	for rows.Next() {
		var summary domain.ChatSessionSummary
		var createdAt, updatedAt int64
		if err := rows.Scan(&summary.ID, &summary.DisplayName, &summary.MessageCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chat session summary: %w", err)
		}
		summary.CreatedAt = time.Unix(createdAt, 0)
		summary.UpdatedAt = time.Unix(updatedAt, 0)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat sessions: %w", err)
	}
	return summaries, nil
}

// UpdateChatSession writes messages, context and display name in a single
// statement so the three fields change together.
func (s *SQLiteStore) UpdateChatSession(ctx context.Context, userKey, sessionID string, update domain.SessionUpdate) error {
	messagesJSON, contextJSON, err := encodeSession(update.Messages, update.Context)
	if err != nil {
		return err
	}

	query := `
		UPDATE chat_sessions
		SET messages_json = ?, context_json = ?, display_name = ?, message_count = ?, updated_at = ?
		WHERE user_key = ? AND session_id = ?`

	return s.retry(ctx, "update_chat_session", func() error {
		result, err := s.db.ExecContext(ctx, query,
			messagesJSON, contextJSON, update.DisplayName, len(update.Messages),
			time.Now().Unix(), userKey, sessionID,
		)
		if err != nil {
			return fmt.Errorf("update chat session: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			slog.Warn("UpdateChatSession affected 0 rows", "user_id", userKey, "session_id", sessionID)
			return ErrNotFound
		}
		return nil
	})
}

func (s *SQLiteStore) retry(ctx context.Context, op string, fn func() error) error {
	return shared.RetryOnConflict(ctx, op, s.opts.MaxRetries, s.opts.RetryBaseDelay, fn)
}

func encodeSession(messages []domain.Message, chatCtx domain.ChatContext) (string, string, error) {
	if messages == nil {
		messages = []domain.Message{}
	}
	if chatCtx.RecentWindow == nil {
		chatCtx.RecentWindow = []domain.Message{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return "", "", fmt.Errorf("encode messages: %w", err)
	}
	contextJSON, err := json.Marshal(chatCtx)
	if err != nil {
		return "", "", fmt.Errorf("encode context: %w", err)
	}
	return string(messagesJSON), string(contextJSON), nil
}
