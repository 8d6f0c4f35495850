package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/jobbot/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), DefaultSQLiteOptions())
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestProfileRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	got, err := repo.GetProfile(ctx, "jane@example.com")
	if err != nil || got != nil {
		t.Fatalf("expected nil profile, got %v, %v", got, err)
	}

	now := time.Now()
	profile := &domain.Profile{
		UserKey:   "jane@example.com",
		Name:      "Jane Doe",
		Skills:    []string{"Python", "SQL"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	profile.Location = "Berlin"
	if err := repo.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("second UpsertProfile failed: %v", err)
	}

	got, err = repo.GetProfile(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Name != "Jane Doe" || got.Location != "Berlin" || len(got.Skills) != 2 {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestChatSessionLifecycle(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	session := &domain.ChatSession{
		ID:          "chat-1",
		UserKey:     "jane@example.com",
		DisplayName: "New Job Search",
		Messages:    []domain.Message{{Role: domain.RoleBot, Text: "Hello Jane!", Timestamp: now}},
		Context:     domain.ChatContext{PermanentContext: "Python and SQL developer"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreateChatSession(ctx, session); err != nil {
		t.Fatalf("CreateChatSession failed: %v", err)
	}

	got, err := repo.GetChatSession(ctx, "jane@example.com", "chat-1")
	if err != nil {
		t.Fatalf("GetChatSession failed: %v", err)
	}
	if got.Context.PermanentContext != "Python and SQL developer" {
		t.Fatalf("unexpected context: %+v", got.Context)
	}
	if got.Context.RecentWindow == nil || len(got.Context.RecentWindow) != 0 {
		t.Fatalf("expected empty non-nil window, got %v", got.Context.RecentWindow)
	}

	update := domain.SessionUpdate{
		Messages: append(got.Messages,
			domain.Message{Role: domain.RoleUser, Text: "find backend jobs", Timestamp: now},
			domain.Message{Role: domain.RoleBot, Text: "Here are some.", Timestamp: now},
		),
		Context: domain.ChatContext{
			PermanentContext:    got.Context.PermanentContext,
			ConversationSummary: "",
			RecentWindow: []domain.Message{
				{Role: domain.RoleUser, Text: "find backend jobs", Timestamp: now},
				{Role: domain.RoleBot, Text: "Here are some.", Timestamp: now},
			},
		},
		DisplayName: "find backend jobs",
	}
	if err := repo.UpdateChatSession(ctx, "jane@example.com", "chat-1", update); err != nil {
		t.Fatalf("UpdateChatSession failed: %v", err)
	}

	got, err = repo.GetChatSession(ctx, "jane@example.com", "chat-1")
	if err != nil {
		t.Fatalf("GetChatSession failed: %v", err)
	}
	if len(got.Messages) != 3 || len(got.Context.RecentWindow) != 2 || got.DisplayName != "find backend jobs" {
		t.Fatalf("update not applied: %+v", got)
	}

	summaries, err := repo.ListChatSessions(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("ListChatSessions failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].MessageCount != 3 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestChatSessionIsScopedToUser(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := repo.CreateChatSession(ctx, &domain.ChatSession{
		ID: "chat-1", UserKey: "a", DisplayName: "New Job Search", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateChatSession failed: %v", err)
	}

	got, err := repo.GetChatSession(ctx, "b", "chat-1")
	if err != nil || got != nil {
		t.Fatalf("expected no session for other user, got %v, %v", got, err)
	}

	err = repo.UpdateChatSession(ctx, "b", "chat-1", domain.SessionUpdate{DisplayName: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
