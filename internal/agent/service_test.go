package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/llm"
	"github.com/ashureev/jobbot/internal/tools"
)

const testUser = "anon_0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T, repo *memRepo, model *fakeModel, ft *fakeTools, opts ...ServiceOption) *Service {
	t.Helper()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]ServiceOption{WithClock(func() time.Time { return fixed })}, opts...)
	svc, err := NewService(repo, model, ft, DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func seedSession(t *testing.T, repo *memRepo, id string, chatCtx domain.ChatContext, messages []domain.Message) {
	t.Helper()
	if chatCtx.RecentWindow == nil {
		chatCtx.RecentWindow = []domain.Message{}
	}
	err := repo.CreateChatSession(context.Background(), &domain.ChatSession{
		ID:          id,
		UserKey:     testUser,
		DisplayName: "New Job Search",
		Messages:    messages,
		Context:     chatCtx,
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestCreateChatForNewProfile(t *testing.T) {
	repo := newMemRepo()
	_ = repo.UpsertProfile(context.Background(), &domain.Profile{
		UserKey: testUser,
		Name:    "Jane",
		Skills:  []string{"Python", "SQL"},
	})
	model := &fakeModel{summary: "Jane is a data professional skilled in Python and SQL."}
	svc := newTestService(t, repo, model, &fakeTools{})

	resp, err := svc.CreateChat(context.Background(), testUser)
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if resp.ID == "" || resp.DisplayName != "New Job Search" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.HasPrefix(resp.InitialMessage, "Hello Jane!") {
		t.Fatalf("unexpected greeting %q", resp.InitialMessage)
	}

	session := repo.session(testUser, resp.ID)
	if session.Context.PermanentContext == "" {
		t.Fatal("expected a permanent context")
	}
	if len(session.Context.RecentWindow) != 0 || session.Context.ConversationSummary != "" {
		t.Fatalf("expected empty window and summary, got %+v", session.Context)
	}
	if len(session.Messages) != 1 || session.Messages[0].Role != domain.RoleBot {
		t.Fatalf("expected a single greeting message, got %+v", session.Messages)
	}
	if !strings.Contains(model.summaryCalls[0], "Skills: Python, SQL") {
		t.Fatalf("profile not passed to summarizer:\n%s", model.summaryCalls[0])
	}
}

func TestCreateChatFallbackContext(t *testing.T) {
	repo := newMemRepo()
	_ = repo.UpsertProfile(context.Background(), &domain.Profile{UserKey: testUser, Name: "Jane Doe", Skills: []string{"Python", "SQL"}})
	svc := newTestService(t, repo, &fakeModel{summaryErr: errors.New("quota")}, &fakeTools{})

	resp, err := svc.CreateChat(context.Background(), testUser)
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	got := repo.session(testUser, resp.ID).Context.PermanentContext
	if want := "User: Jane Doe. Skills: Python, SQL. Location: Not specified."; got != want {
		t.Fatalf("permanent context = %q, want %q", got, want)
	}
}

func TestCreateChatWithoutProfile(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &fakeModel{}, &fakeTools{})

	if _, err := svc.CreateChat(context.Background(), testUser); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestHandleTurnPersistsExchange(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{PermanentContext: "Go developer"},
		[]domain.Message{{Role: domain.RoleBot, Text: "Hello!"}})
	model := &fakeModel{replies: []llm.Reply{textReply("Try tailoring your resume.")}}
	svc := newTestService(t, repo, model, &fakeTools{})

	resp, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: "How do I stand out?"})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if resp.Text != "Try tailoring your resume." || resp.Failed {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.DisplayName != "How do I stand out?" {
		t.Fatalf("unexpected display name %q", resp.DisplayName)
	}

	session := repo.session(testUser, "s1")
	if len(session.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(session.Messages))
	}
	if len(session.Context.RecentWindow) != 2 {
		t.Fatalf("expected window of 2, got %d", len(session.Context.RecentWindow))
	}
	if session.Context.PermanentContext != "Go developer" {
		t.Fatal("permanent context must not change")
	}
	if !strings.HasPrefix(model.histories[0][0].Parts[0].Text, "[USER PROFILE]\nGo developer") {
		t.Fatalf("prompt not composed from context: %q", model.histories[0][0].Parts[0].Text)
	}
}

func TestHandleTurnDisplayNameTruncated(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{}, []domain.Message{{Role: domain.RoleBot, Text: "Hello!"}})
	svc := newTestService(t, repo, &fakeModel{replies: []llm.Reply{textReply("ok")}}, &fakeTools{})

	long := strings.Repeat("a", 60)
	resp, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: long})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if resp.DisplayName != strings.Repeat("a", 50)+"..." {
		t.Fatalf("unexpected display name %q", resp.DisplayName)
	}
}

func TestHandleTurnToolFailureLeavesStateUnchanged(t *testing.T) {
	repo := newMemRepo()
	chatCtx := domain.ChatContext{
		PermanentContext:    "profile",
		ConversationSummary: "summary",
		RecentWindow:        makeWindow(4),
	}
	seedSession(t, repo, "s1", chatCtx, []domain.Message{{Role: domain.RoleBot, Text: "Hello!"}})
	before := repo.session(testUser, "s1")

	model := &fakeModel{replies: []llm.Reply{toolReply("", "search_jobs", map[string]any{"query": "go"})}}
	ft := &fakeTools{err: &tools.ExecutionError{Tool: tools.SearchJobs, Err: errors.New("jsearch unreachable")}}
	svc := newTestService(t, repo, model, ft)

	resp, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: "find go jobs"})
	if err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}
	if resp.Text != DefaultConfig().ApologyText || !resp.Failed {
		t.Fatalf("expected apology, got %+v", resp)
	}
	if repo.updates != 0 {
		t.Fatalf("expected no writes, got %d", repo.updates)
	}

	after := repo.session(testUser, "s1")
	if len(after.Messages) != len(before.Messages) ||
		after.Context.ConversationSummary != before.Context.ConversationSummary ||
		len(after.Context.RecentWindow) != len(before.Context.RecentWindow) ||
		after.DisplayName != before.DisplayName {
		t.Fatalf("stored session changed: before=%+v after=%+v", before, after)
	}
}

func TestHandleTurnMalformedReplyApologizes(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{}, nil)
	svc := newTestService(t, repo, &fakeModel{replies: []llm.Reply{llm.Malformed("{}")}}, &fakeTools{})

	resp, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: "hi"})
	if err != nil || !resp.Failed {
		t.Fatalf("expected apology, got %+v, %v", resp, err)
	}
	if repo.updates != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestHandleTurnSaveFailureApologizes(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{}, []domain.Message{{Role: domain.RoleBot, Text: "Hello!"}})
	repo.updateErr = errors.New("disk I/O error")
	svc := newTestService(t, repo, &fakeModel{replies: []llm.Reply{textReply("Sure.")}}, &fakeTools{})

	resp, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: "hi"})
	if err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}
	if !resp.Failed || resp.Text != DefaultConfig().ApologyText {
		t.Fatalf("expected apology, got %+v", resp)
	}
	if got := repo.session(testUser, "s1"); len(got.Messages) != 1 {
		t.Fatalf("expected stored messages unchanged, got %d", len(got.Messages))
	}
}

func TestHandleTurnNotFound(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &fakeModel{}, &fakeTools{})

	_, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "missing", Text: "hi"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound should match")
	}
}

func TestHandleTurnEmptyMessage(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &fakeModel{}, &fakeTools{})

	if _, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: "  "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestHandleTurnWindowStaysBounded(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{}, nil)
	model := &fakeModel{
		summary: "rolling",
		generate: func(context.Context, []llm.Turn) (llm.Reply, error) {
			return textReply("answer"), nil
		},
	}
	svc := newTestService(t, repo, model, &fakeTools{})

	for i := range 9 {
		if _, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: fmt.Sprintf("q%d", i)}); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if n := len(repo.session(testUser, "s1").Context.RecentWindow); n > 10 {
			t.Fatalf("turn %d: window grew to %d", i, n)
		}
	}

	session := repo.session(testUser, "s1")
	if len(session.Messages) != 18 {
		t.Fatalf("expected all 18 messages kept, got %d", len(session.Messages))
	}
	if session.Context.ConversationSummary != "rolling" {
		t.Fatalf("expected compaction to set the summary, got %q", session.Context.ConversationSummary)
	}
	if session.DisplayName != "q0" {
		t.Fatalf("display name should come from the first message, got %q", session.DisplayName)
	}
}

func TestHandleTurnCompactionFailureStillSucceeds(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{ConversationSummary: "keep me", RecentWindow: makeWindow(10)}, nil)
	model := &fakeModel{
		replies:    []llm.Reply{textReply("fine")},
		summaryErr: errors.New("summarizer down"),
	}
	svc := newTestService(t, repo, model, &fakeTools{})

	resp, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: "next"})
	if err != nil || resp.Failed {
		t.Fatalf("turn should succeed, got %+v, %v", resp, err)
	}
	session := repo.session(testUser, "s1")
	if session.Context.ConversationSummary != "keep me" {
		t.Fatalf("summary overwritten with %q", session.Context.ConversationSummary)
	}
	if len(session.Context.RecentWindow) != 10 {
		t.Fatalf("expected window of 10, got %d", len(session.Context.RecentWindow))
	}
}

func TestHandleTurnSelectedJob(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{}, nil)
	model := &fakeModel{replies: []llm.Reply{textReply("Great pick.")}}
	ft := &fakeTools{card: &domain.JobCard{JobID: "job-7", Title: "Platform Engineer", Employer: "Acme"}}
	svc := newTestService(t, repo, model, ft, WithJobLookup(ft))

	resp, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: "thoughts?", SelectedJobID: "job-7"})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if resp.SelectedJobDetails == nil || resp.SelectedJobDetails.JobID != "job-7" {
		t.Fatalf("expected selected job details, got %+v", resp.SelectedJobDetails)
	}

	prompt := model.histories[0][0].Parts[0].Text
	if !strings.Contains(prompt, "selected job with ID: job-7") {
		t.Fatalf("selection note missing:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "[Selected Job Details: Platform Engineer at Acme]") {
		t.Fatalf("selected job line missing:\n%s", prompt)
	}
	if got := repo.session(testUser, "s1").Messages[0].SelectedJobID; got != "job-7" {
		t.Fatalf("user message should record the selected job, got %q", got)
	}
}

func TestHandleTurnSelectedJobLookupFailureIgnored(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{}, nil)
	model := &fakeModel{replies: []llm.Reply{textReply("Sure.")}}
	ft := &fakeTools{}
	svc := newTestService(t, repo, model, ft, WithJobLookup(ft))

	resp, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: "hmm", SelectedJobID: "gone"})
	if err != nil || resp.Failed {
		t.Fatalf("lookup failure must not fail the turn: %+v, %v", resp, err)
	}
	if resp.SelectedJobDetails != nil {
		t.Fatal("expected no selected job details")
	}
}

func TestConcurrentTurnsAreNotLost(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{}, nil)
	model := &fakeModel{
		summary: "rolling",
		generate: func(context.Context, []llm.Turn) (llm.Reply, error) {
			time.Sleep(2 * time.Millisecond)
			return textReply("answer"), nil
		},
	}
	svc := newTestService(t, repo, model, &fakeTools{})

	const turns = 8
	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := range turns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.HandleTurn(context.Background(), TurnRequest{UserKey: testUser, SessionID: "s1", Text: fmt.Sprintf("q%d", i)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("turn failed: %v", err)
		}
	}

	if got := len(repo.session(testUser, "s1").Messages); got != 2*turns {
		t.Fatalf("expected %d messages, got %d (lost update)", 2*turns, got)
	}
}

func TestHandleTurnCancelledWhileWaiting(t *testing.T) {
	repo := newMemRepo()
	seedSession(t, repo, "s1", domain.ChatContext{}, nil)
	svc := newTestService(t, repo, &fakeModel{}, &fakeTools{})

	unlock, err := svc.locks.Lock(context.Background(), sessionKey(testUser, "s1"))
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.HandleTurn(ctx, TurnRequest{UserKey: testUser, SessionID: "s1", Text: "hi"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if repo.updates != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestListChatsNeverNil(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &fakeModel{}, &fakeTools{})

	chats, err := svc.ListChats(context.Background(), testUser)
	if err != nil {
		t.Fatalf("ListChats failed: %v", err)
	}
	if chats == nil {
		t.Fatal("expected empty non-nil slice")
	}
}
