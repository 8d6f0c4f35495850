package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/store"
	"github.com/ashureev/jobbot/internal/tools"
)

// ErrEmptyMessage is returned for turns without any text.
var ErrEmptyMessage = errors.New("message cannot be empty")

// Service runs chat sessions: creating them from a profile and handling
// turns against the model.
type Service struct {
	repo         store.Repository
	model        Model
	jobs         JobLookup
	orchestrator *Orchestrator
	compactor    *Compactor
	locks        *sessionLocks
	convLog      ConversationLogger
	cfg          Config
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithJobLookup enables resolving the job a user selected before the model
// is called.
func WithJobLookup(jobs JobLookup) ServiceOption {
	return func(s *Service) { s.jobs = jobs }
}

// WithConversationLogger records turn events.
func WithConversationLogger(l ConversationLogger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.convLog = l
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a chat service.
func NewService(repo store.Repository, model Model, toolset ToolExecutor, cfg Config, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository cannot be nil")
	}
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}
	if toolset == nil {
		return nil, errors.New("tool executor cannot be nil")
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be > 0, got %d", cfg.WindowSize)
	}

	s := &Service{
		repo:    repo,
		model:   model,
		locks:   newSessionLocks(),
		convLog: noopConversationLogger{},
		cfg:     cfg,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.orchestrator = NewOrchestrator(model, toolset, cfg, s.logger)
	s.compactor = NewCompactor(model, cfg, s.logger)
	return s, nil
}

// CreateChat starts a new chat for the user's profile. The permanent context
// is derived from the profile once and never changes afterwards.
func (s *Service) CreateChat(ctx context.Context, userKey string) (*NewChatResponse, error) {
	profile, err := s.repo.GetProfile(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	permanent := s.permanentContext(ctx, profile)
	now := s.now()
	hello := greeting(profile)

	session := &domain.ChatSession{
		ID:          s.newID(),
		UserKey:     userKey,
		DisplayName: s.cfg.DefaultDisplayName,
		Messages: []domain.Message{{
			Role:      domain.RoleBot,
			Text:      hello,
			Timestamp: now,
		}},
		Context: domain.ChatContext{
			PermanentContext: permanent,
			RecentWindow:     []domain.Message{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateChatSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}

	s.logger.Info("chat session created", "user_id", userKey, "session_id", session.ID)
	return &NewChatResponse{
		ID:             session.ID,
		DisplayName:    session.DisplayName,
		InitialMessage: hello,
	}, nil
}

func (s *Service) permanentContext(ctx context.Context, profile *domain.Profile) string {
	ctx, cancel := withTimeout(ctx, s.cfg.ModelTimeout)
	defer cancel()

	summary, err := s.model.Summarize(ctx, profilePrompt(profile, s.cfg.ProfileWordLimit))
	summary = strings.TrimSpace(summary)
	if err != nil || summary == "" {
		s.logger.Warn("profile summary failed, using fallback context",
			"user_id", profile.UserKey, "error", err)
		return fallbackPermanentContext(profile)
	}
	return capWords(summary, s.cfg.ProfileWordLimit)
}

// ListChats returns the user's chats, newest first.
func (s *Service) ListChats(ctx context.Context, userKey string) ([]domain.ChatSessionSummary, error) {
	chats, err := s.repo.ListChatSessions(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	if chats == nil {
		chats = []domain.ChatSessionSummary{}
	}
	return chats, nil
}

// GetChat returns one chat with its messages.
func (s *Service) GetChat(ctx context.Context, userKey, sessionID string) (*domain.ChatSession, error) {
	session, err := s.repo.GetChatSession(ctx, userKey, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// HandleTurn answers one user message. Unknown sessions return
// ErrSessionNotFound and a cancelled ctx returns its error; every other
// failure is logged and answered with the apology text, leaving the stored
// session untouched.
func (s *Service) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyMessage
	}

	unlock, err := s.locks.Lock(ctx, sessionKey(req.UserKey, req.SessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.repo.GetChatSession(ctx, req.UserKey, req.SessionID)
	if err != nil {
		return s.fail(ctx, req, fmt.Errorf("load chat session: %w", err))
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	s.logEvent(req, "inbound", "chat_user_message", req.Text, map[string]any{
		"selected_job_id": req.SelectedJobID,
	})

	prompt := ComposePrompt(session.Context, req.Text, req.SelectedJobID)

	var selected *domain.JobCard
	if req.SelectedJobID != "" {
		if card := s.lookupSelectedJob(ctx, req); card != nil {
			selected = card
			prompt += selectedJobLine(card)
		}
	}

	outcome, err := s.orchestrator.Run(ctx, prompt)
	if err != nil {
		return s.fail(ctx, req, err)
	}
	if outcome.Tool != "" {
		s.logEvent(req, "internal", "tool_call", "", map[string]any{
			"tool":  string(outcome.Tool),
			"cards": len(outcome.JobCards),
			"trace": traceNames(outcome.Trace),
		})
	}
	if outcome.SelectedJob != nil {
		selected = outcome.SelectedJob
	}

	now := s.now()
	userMsg := domain.Message{Role: domain.RoleUser, Text: req.Text, Timestamp: now, SelectedJobID: req.SelectedJobID}
	botMsg := domain.Message{Role: domain.RoleBot, Text: outcome.Text, Timestamp: now}

	next := session.Context.Clone()
	next.RecentWindow = append(next.RecentWindow, userMsg, botMsg)
	next, err = s.compactor.Compact(ctx, next)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logEvent(req, "internal", "compaction_failed", "", map[string]any{"error": err.Error()})
	}

	messages := make([]domain.Message, 0, len(session.Messages)+2)
	messages = append(messages, session.Messages...)
	messages = append(messages, userMsg, botMsg)

	displayName := session.DisplayName
	if len(messages) <= 3 {
		displayName = s.displayNameFrom(req.Text)
	}

	err = s.repo.UpdateChatSession(ctx, req.UserKey, req.SessionID, domain.SessionUpdate{
		Messages:    messages,
		Context:     next,
		DisplayName: displayName,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return s.fail(ctx, req, fmt.Errorf("save chat session: %w", err))
	}

	s.logEvent(req, "outbound", "chat_assistant_message", outcome.Text, map[string]any{
		"tool":          string(outcome.Tool),
		"job_cards":     len(outcome.JobCards),
		"window":        len(next.RecentWindow),
		"summary_words": len(strings.Fields(next.ConversationSummary)),
	})

	return &TurnResponse{
		Text:               outcome.Text,
		JobCards:           outcome.JobCards,
		SelectedJobDetails: selected,
		DisplayName:        displayName,
	}, nil
}

func (s *Service) lookupSelectedJob(ctx context.Context, req TurnRequest) *domain.JobCard {
	if s.jobs == nil {
		return nil
	}
	ctx, cancel := withTimeout(ctx, s.cfg.ToolTimeout)
	defer cancel()

	card, err := s.jobs.DetailsCard(ctx, req.SelectedJobID)
	if err != nil {
		s.logger.Warn("selected job lookup failed",
			"user_id", req.UserKey, "session_id", req.SessionID, "job_id", req.SelectedJobID, "error", err)
		return nil
	}
	return card
}

func (s *Service) fail(ctx context.Context, req TurnRequest, err error) (*TurnResponse, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.logger.Info("chat turn abandoned", "user_id", req.UserKey, "session_id", req.SessionID, "error", ctxErr)
		return nil, ctxErr
	}

	s.logger.Error("chat turn failed",
		"user_id", req.UserKey,
		"session_id", req.SessionID,
		"kind", failureKind(err),
		"error", err,
	)
	s.logEvent(req, "outbound", "chat_turn_failed", s.cfg.ApologyText, map[string]any{
		"kind":  failureKind(err),
		"error": err.Error(),
	})
	return &TurnResponse{Text: s.cfg.ApologyText, Failed: true}, nil
}

func (s *Service) displayNameFrom(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= s.cfg.DisplayNameLength {
		return string(runes)
	}
	return string(runes[:s.cfg.DisplayNameLength]) + "..."
}

func (s *Service) logEvent(req TurnRequest, direction, eventType, content string, meta map[string]any) {
	s.convLog.Log(ConversationLogEvent{
		Timestamp:  s.now().Format(time.RFC3339Nano),
		UserID:     req.UserKey,
		SessionID:  req.SessionID,
		Channel:    "chat_http",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Meta:       meta,
	})
}

func failureKind(err error) string {
	var modelErr *ModelError
	switch {
	case errors.Is(err, tools.ErrInvalidArguments):
		return "tool_argument"
	case errors.Is(err, tools.ErrExecution):
		return "tool_execution"
	case errors.As(err, &modelErr):
		return "model_communication"
	default:
		return "internal"
	}
}

func traceNames(trace []State) []string {
	names := make([]string, len(trace))
	for i, st := range trace {
		names[i] = st.String()
	}
	return names
}
