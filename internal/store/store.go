// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/jobbot/internal/domain"
)

// ErrNotFound is returned by updates that match no row.
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for persisting profiles and chat sessions.
type Repository interface {
	// GetProfile retrieves the profile for a user key. Returns nil, nil when absent.
	GetProfile(ctx context.Context, userKey string) (*domain.Profile, error)

	// UpsertProfile creates or updates a profile.
	UpsertProfile(ctx context.Context, profile *domain.Profile) error

	// CreateChatSession inserts a new chat session.
	CreateChatSession(ctx context.Context, session *domain.ChatSession) error

	// GetChatSession retrieves a chat session by key. Returns nil, nil when absent.
	GetChatSession(ctx context.Context, userKey, sessionID string) (*domain.ChatSession, error)

	// ListChatSessions returns the user's sessions, newest first.
	ListChatSessions(ctx context.Context, userKey string) ([]domain.ChatSessionSummary, error)

	// UpdateChatSession writes messages, context and display name together.
	// Returns ErrNotFound if the session does not exist.
	UpdateChatSession(ctx context.Context, userKey, sessionID string, update domain.SessionUpdate) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
