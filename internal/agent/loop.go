package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/llm"
	"github.com/ashureev/jobbot/internal/tools"
)

// State is a step of the tool-calling state machine.
type State int

const (
	StateAwaitingModel State = iota
	StateModelResponded
	StateTextFinal
	StateToolRequested
	StateExecutingTool
	StateAwaitingModelAfterTool
	StateModelRespondedAfterTool
	StateToolRequestedAgain
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateModelResponded:
		return "model_responded"
	case StateTextFinal:
		return "text_final"
	case StateToolRequested:
		return "tool_requested"
	case StateExecutingTool:
		return "executing_tool"
	case StateAwaitingModelAfterTool:
		return "awaiting_model_after_tool"
	case StateModelRespondedAfterTool:
		return "model_responded_after_tool"
	case StateToolRequestedAgain:
		return "tool_requested_again"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the result of one orchestrated turn.
type Outcome struct {
	Text string
	// JobCards is set when search_jobs ran.
	JobCards []domain.JobCard
	// SelectedJob is set when get_job_details found a job.
	SelectedJob *domain.JobCard
	// Tool is the executed tool, empty when none ran.
	Tool tools.Name
	// Trace lists the states visited, in order.
	Trace []State
}

func (o *Outcome) enter(s State) {
	o.Trace = append(o.Trace, s)
}

// Orchestrator drives one chat turn against the model, running at most one
// tool cycle.
type Orchestrator struct {
	model  Model
	tools  ToolExecutor
	cfg    Config
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(model Model, toolset ToolExecutor, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{model: model, tools: toolset, cfg: cfg, logger: logger}
}

// Run sends prompt to the model and resolves the reply. A tool request in the
// first reply is executed and its model-facing result sent back; a tool
// request in the second reply is never executed. Any returned error means the
// turn failed and nothing should be persisted.
func (o *Orchestrator) Run(ctx context.Context, prompt string) (*Outcome, error) {
	out := &Outcome{}
	decls := o.tools.Declarations()
	history := []llm.Turn{llm.UserText(prompt)}

	out.enter(StateAwaitingModel)
	reply, err := o.generate(ctx, history, decls)
	if err != nil {
		return nil, &ModelError{Stage: StateAwaitingModel, Err: err}
	}

	out.enter(StateModelResponded)
	switch reply.Kind {
	case llm.ReplyText:
		out.enter(StateTextFinal)
		out.Text = reply.Text
		out.enter(StateDone)
		return out, nil
	case llm.ReplyMalformed:
		return nil, &ModelError{Stage: StateModelResponded, Err: fmt.Errorf("%w: %s", ErrMalformedReply, reply.Raw)}
	}

	out.enter(StateToolRequested)
	call := *reply.ToolRequest
	if reply.ExtraToolCalls > 0 {
		o.logger.Warn("model requested several tools, running the first only",
			"tool", call.Name, "dropped", reply.ExtraToolCalls)
	}

	out.enter(StateExecutingTool)
	result, err := o.execute(ctx, call)
	if err != nil {
		return nil, err
	}
	out.Tool = result.Tool
	switch result.Tool {
	case tools.SearchJobs:
		out.JobCards = result.Cards
	case tools.GetJobDetails:
		out.SelectedJob = result.Job
	}

	payload, err := result.ModelPayload()
	if err != nil {
		return nil, err
	}
	history = append(history, reply.Content, llm.ToolResult(call, payload))

	out.enter(StateAwaitingModelAfterTool)
	second, err := o.generate(ctx, history, decls)
	if err != nil {
		return nil, &ModelError{Stage: StateAwaitingModelAfterTool, Err: err}
	}

	out.enter(StateModelRespondedAfterTool)
	switch second.Kind {
	case llm.ReplyText:
		out.enter(StateTextFinal)
		out.Text = second.Text
	case llm.ReplyToolRequest:
		out.enter(StateToolRequestedAgain)
		o.logger.Info("ignoring follow-up tool request", "tool", second.ToolRequest.Name)
		out.Text = second.Text
	default:
		o.logger.Warn("follow-up reply had no usable content", "raw", second.Raw)
	}
	if out.Text == "" {
		out.Text = o.cfg.FallbackText
	}

	out.enter(StateDone)
	return out, nil
}

func (o *Orchestrator) generate(ctx context.Context, history []llm.Turn, decls []llm.ToolDeclaration) (llm.Reply, error) {
	ctx, cancel := withTimeout(ctx, o.cfg.ModelTimeout)
	defer cancel()
	return o.model.Generate(ctx, history, decls)
}

func (o *Orchestrator) execute(ctx context.Context, call llm.ToolCall) (*tools.Result, error) {
	ctx, cancel := withTimeout(ctx, o.cfg.ToolTimeout)
	defer cancel()

	start := time.Now()
	result, err := o.tools.Execute(ctx, call)
	if err != nil {
		o.logger.Warn("tool execution failed", "tool", call.Name, "duration", time.Since(start), "error", err)
		return nil, err
	}
	o.logger.Info("tool executed", "tool", call.Name, "duration", time.Since(start))
	return result, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
