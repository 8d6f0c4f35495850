package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/llm"
	"github.com/ashureev/jobbot/internal/store"
	"github.com/ashureev/jobbot/internal/tools"
)

// fakeModel replays scripted replies and records what it was sent.
type fakeModel struct {
	mu        sync.Mutex
	replies   []llm.Reply
	errs      []error
	histories [][]llm.Turn
	// generate, when set, replaces the scripted replies.
	generate func(ctx context.Context, history []llm.Turn) (llm.Reply, error)

	summary      string
	summaryErr   error
	summaryCalls []string
}

func (m *fakeModel) Generate(ctx context.Context, history []llm.Turn, _ []llm.ToolDeclaration) (llm.Reply, error) {
	m.mu.Lock()
	m.histories = append(m.histories, append([]llm.Turn(nil), history...))
	gen := m.generate
	m.mu.Unlock()
	if gen != nil {
		return gen(ctx, history)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.histories) - 1
	if i < len(m.errs) && m.errs[i] != nil {
		return llm.Reply{}, m.errs[i]
	}
	if i >= len(m.replies) {
		return llm.Reply{}, errors.New("no scripted reply")
	}
	return m.replies[i], nil
}

func (m *fakeModel) Summarize(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryCalls = append(m.summaryCalls, prompt)
	if m.summaryErr != nil {
		return "", m.summaryErr
	}
	return m.summary, nil
}

func (m *fakeModel) generateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.histories)
}

func textReply(text string) llm.Reply {
	return llm.NewReply(llm.Turn{Role: llm.RoleModel, Parts: []llm.Part{{Text: text}}})
}

func toolReply(text, name string, args map[string]any) llm.Reply {
	var parts []llm.Part
	if text != "" {
		parts = append(parts, llm.Part{Text: text})
	}
	parts = append(parts, llm.Part{ToolCall: &llm.ToolCall{Name: name, Args: args}})
	return llm.NewReply(llm.Turn{Role: llm.RoleModel, Parts: parts})
}

// fakeTools records executions and returns a canned result.
type fakeTools struct {
	mu     sync.Mutex
	result *tools.Result
	err    error
	calls  []llm.ToolCall
	card   *domain.JobCard
}

func (f *fakeTools) Declarations() []llm.ToolDeclaration {
	return tools.Declarations()
}

func (f *fakeTools) Execute(_ context.Context, call llm.ToolCall) (*tools.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeTools) DetailsCard(_ context.Context, jobID string) (*domain.JobCard, error) {
	if f.card == nil || f.card.JobID != jobID {
		return nil, errors.New("job not found")
	}
	c := *f.card
	return &c, nil
}

func (f *fakeTools) executions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memRepo is an in-memory store.Repository.
type memRepo struct {
	mu        sync.Mutex
	profiles  map[string]*domain.Profile
	sessions  map[string]*domain.ChatSession
	updates   int
	updateErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		profiles: make(map[string]*domain.Profile),
		sessions: make(map[string]*domain.ChatSession),
	}
}

func cloneSession(s *domain.ChatSession) *domain.ChatSession {
	c := *s
	c.Messages = append([]domain.Message(nil), s.Messages...)
	c.Context = s.Context.Clone()
	return &c
}

func (r *memRepo) GetProfile(_ context.Context, userKey string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userKey]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r *memRepo) UpsertProfile(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	r.profiles[p.UserKey] = &c
	return nil
}

func (r *memRepo) CreateChatSession(_ context.Context, s *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionKey(s.UserKey, s.ID)] = cloneSession(s)
	return nil
}

func (r *memRepo) GetChatSession(_ context.Context, userKey, sessionID string) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey(userKey, sessionID)]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *memRepo) ListChatSessions(_ context.Context, userKey string) ([]domain.ChatSessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatSessionSummary
	for _, s := range r.sessions {
		if s.UserKey == userKey {
			out = append(out, domain.ChatSessionSummary{ID: s.ID, DisplayName: s.DisplayName, MessageCount: len(s.Messages)})
		}
	}
	return out, nil
}

func (r *memRepo) UpdateChatSession(_ context.Context, userKey, sessionID string, u domain.SessionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	s, ok := r.sessions[sessionKey(userKey, sessionID)]
	if !ok {
		return store.ErrNotFound
	}
	s.Messages = append([]domain.Message(nil), u.Messages...)
	s.Context = u.Context.Clone()
	s.DisplayName = u.DisplayName
	r.updates++
	return nil
}

func (r *memRepo) Ping(context.Context) error { return nil }
func (r *memRepo) Close() error               { return nil }

func (r *memRepo) session(userKey, sessionID string) *domain.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSession(r.sessions[sessionKey(userKey, sessionID)])
}

var _ store.Repository = (*memRepo)(nil)
