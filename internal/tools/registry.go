package tools

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/ashureev/jobbot/internal/llm"
)

// Registry resolves tool calls from the model to the job search tools.
type Registry struct {
	source JobSource
	strict bool
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrictArguments makes unknown argument fields an ArgumentError instead
// of being dropped.
func WithStrictArguments() Option {
	return func(r *Registry) { r.strict = true }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry backed by source.
func NewRegistry(source JobSource, opts ...Option) (*Registry, error) {
	if source == nil {
		return nil, errors.New("job source cannot be nil")
	}
	r := &Registry{source: source, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Declarations returns the schemas advertised to the model.
func (r *Registry) Declarations() []llm.ToolDeclaration {
	return Declarations()
}

// Execute validates the call's arguments and runs the tool. Argument problems
// return an *ArgumentError, job source failures an *ExecutionError.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) (*Result, error) {
	name, err := ParseName(call.Name)
	if err != nil {
		return nil, err
	}
	if !r.strict {
		if extra := unknownArgs(name, call.Args); len(extra) > 0 {
			r.logger.Warn("ignoring unknown tool arguments", "tool", name, "fields", extra)
		}
	}

	switch name {
	case SearchJobs:
		args, err := ParseSearchArgs(call.Args, r.strict)
		if err != nil {
			return nil, err
		}
		r.logger.Info("executing tool", "tool", name, "query", args.Query, "num_pages", args.NumPages)
		return r.searchJobs(ctx, args)
	case GetJobDetails:
		args, err := ParseDetailsArgs(call.Args, r.strict)
		if err != nil {
			return nil, err
		}
		r.logger.Info("executing tool", "tool", name, "job_id", args.JobID)
		return r.getJobDetails(ctx, args)
	}
	return nil, &ArgumentError{Tool: name, Reason: "unknown tool"}
}

func unknownArgs(name Name, args map[string]any) []string {
	props := declaration(name).Properties
	var extra []string
	for k := range args {
		if _, ok := props[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}
