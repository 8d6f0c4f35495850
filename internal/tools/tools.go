// Package tools implements the job search tools the assistant may call and
// the registry the orchestration loop dispatches through.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/jobsearch"
	"github.com/ashureev/jobbot/internal/llm"
)

// Name identifies one of the tools known to the registry.
type Name string

const (
	SearchJobs    Name = "search_jobs"
	GetJobDetails Name = "get_job_details"
)

// Names lists every tool in declaration order.
var Names = []Name{SearchJobs, GetJobDetails}

// ParseName resolves a tool name sent by the model.
func ParseName(s string) (Name, error) {
	switch n := Name(s); n {
	case SearchJobs, GetJobDetails:
		return n, nil
	default:
		return "", &ArgumentError{Tool: Name(s), Reason: "unknown tool"}
	}
}

// JobSource is the job listings collaborator used by the tools.
type JobSource interface {
	Search(ctx context.Context, q jobsearch.Query) ([]jobsearch.Job, error)
	Details(ctx context.Context, jobID, country string) (*jobsearch.Job, error)
}

// Result holds the two views of one tool execution. ModelFacing is sent back
// to the model; Cards and Job are returned to the caller only.
type Result struct {
	Tool        Name
	ModelFacing any
	Cards       []domain.JobCard
	Job         *domain.JobCard
}

// ModelPayload renders the model-facing view as a function response body.
func (r *Result) ModelPayload() (map[string]any, error) {
	data, err := json.Marshal(r.ModelFacing)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", r.Tool, err)
	}
	return map[string]any{"result": string(data)}, nil
}

// Declarations returns the schema of every tool, in declaration order.
func Declarations() []llm.ToolDeclaration {
	decls := make([]llm.ToolDeclaration, 0, len(Names))
	for _, n := range Names {
		decls = append(decls, declaration(n))
	}
	return decls
}

func declaration(n Name) llm.ToolDeclaration {
	switch n {
	case SearchJobs:
		return searchDeclaration
	case GetJobDetails:
		return detailsDeclaration
	}
	panic(fmt.Sprintf("tools: no declaration for %q", n))
}

var searchDeclaration = llm.ToolDeclaration{
	Name: string(SearchJobs),
	Description: "Search for job listings. IMPORTANT: Keep queries SIMPLE to find more results. " +
		"Use minimal filters, only add filters when the user EXPLICITLY asks for them. " +
		"Start with just the job title or role, add location only if the user specifies one.",
	Properties: map[string]llm.Property{
		"query": {
			Type: llm.TypeString,
			Description: "Keep it SIMPLE: just the job title or role. Examples: 'software developer', " +
				"'frontend developer', 'data scientist'. Only add location if the user explicitly mentioned one.",
		},
		"country": {
			Type:        llm.TypeString,
			Description: "ISO-3166-1 alpha-2 country code (e.g. 'us', 'uk'). Only use if the user specifies a country. Default is 'us'.",
		},
		"date_posted": {
			Type:        llm.TypeString,
			Description: "ONLY use if the user asks for recent jobs. Default is 'all'.",
			Enum:        datePostedValues,
		},
		"employment_types": {
			Type:        llm.TypeString,
			Description: "ONLY use if the user explicitly asks for an employment type. Comma separated list of: FULLTIME, CONTRACTOR, PARTTIME, INTERN.",
		},
		"job_requirements": {
			Type:        llm.TypeString,
			Description: "ONLY use if the user explicitly asks for an experience level.",
			Enum:        jobRequirementValues,
		},
		"work_from_home": {
			Type:        llm.TypeBoolean,
			Description: "ONLY set to true if the user explicitly asks for remote or work-from-home jobs.",
		},
		"num_pages": {
			Type:        llm.TypeInteger,
			Description: "Number of result pages to fetch (1-3). Default is 1.",
		},
	},
	Required: []string{"query"},
}

var detailsDeclaration = llm.ToolDeclaration{
	Name: string(GetJobDetails),
	Description: "Get detailed information about a specific job by its ID. Use this when a user " +
		"selects a job or asks for more details about a particular position.",
	Properties: map[string]llm.Property{
		"job_id": {
			Type:        llm.TypeString,
			Description: "The unique identifier of the job to get details for.",
		},
		"country": {
			Type:        llm.TypeString,
			Description: "ISO-3166-1 alpha-2 country code. Default is 'us'.",
		},
	},
	Required: []string{"job_id"},
}
