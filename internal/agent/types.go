// Package agent implements the JobBot chat turn engine: prompt composition,
// context compaction and the bounded tool-calling loop.
package agent

import (
	"context"
	"time"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/llm"
	"github.com/ashureev/jobbot/internal/tools"
)

// Model is the language model collaborator.
type Model interface {
	// Generate sends the conversation with the declared tools and returns the
	// classified reply.
	Generate(ctx context.Context, history []llm.Turn, tools []llm.ToolDeclaration) (llm.Reply, error)

	// Summarize runs a plain, tool-free generation.
	Summarize(ctx context.Context, prompt string) (string, error)
}

// ToolExecutor runs the tool requested by the model.
type ToolExecutor interface {
	Declarations() []llm.ToolDeclaration
	Execute(ctx context.Context, call llm.ToolCall) (*tools.Result, error)
}

// JobLookup resolves the job a user selected in the UI.
type JobLookup interface {
	DetailsCard(ctx context.Context, jobID string) (*domain.JobCard, error)
}

// Ensure the production collaborators satisfy the engine interfaces.
var (
	_ Model        = (*llm.Gemini)(nil)
	_ ToolExecutor = (*tools.Registry)(nil)
	_ JobLookup    = (*tools.Registry)(nil)
)

// Config holds agent configuration.
type Config struct {
	// WindowSize is the maximum number of messages kept verbatim at rest.
	WindowSize int
	// SummaryWordLimit bounds the rolling conversation summary.
	SummaryWordLimit int
	// ProfileWordLimit bounds the permanent context built from a profile.
	ProfileWordLimit int
	// ModelTimeout bounds each model call.
	ModelTimeout time.Duration
	// ToolTimeout bounds each tool execution.
	ToolTimeout time.Duration
	// FallbackText answers a turn whose follow-up reply had no usable text.
	FallbackText string
	// ApologyText answers a turn that failed.
	ApologyText string
	// DefaultDisplayName names a freshly created chat.
	DefaultDisplayName string
	// DisplayNameLength is how much of the first message names a chat.
	DisplayNameLength int
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:         10,
		SummaryWordLimit:   150,
		ProfileWordLimit:   200,
		ModelTimeout:       60 * time.Second,
		ToolTimeout:        30 * time.Second,
		FallbackText:       "I found the information you requested. Let me know if you need anything else!",
		ApologyText:        "I apologize, but I encountered an error. Please try again.",
		DefaultDisplayName: "New Job Search",
		DisplayNameLength:  50,
	}
}

// TurnRequest is one user message sent to a chat.
type TurnRequest struct {
	UserKey       string
	SessionID     string
	Text          string
	SelectedJobID string
}

// TurnResponse is the result of a chat turn.
type TurnResponse struct {
	Text               string           `json:"message"`
	JobCards           []domain.JobCard `json:"jobs,omitempty"`
	SelectedJobDetails *domain.JobCard  `json:"selected_job_details,omitempty"`
	DisplayName        string           `json:"chat_name,omitempty"`
	// Failed is set when the turn was answered with the apology and nothing
	// was stored.
	Failed bool `json:"-"`
}

// NewChatResponse describes a freshly created chat.
type NewChatResponse struct {
	ID             string `json:"chat_id"`
	DisplayName    string `json:"chat_name"`
	InitialMessage string `json:"initial_message"`
}
