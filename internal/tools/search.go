package tools

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ashureev/jobbot/internal/jobsearch"
)

// MaxListedJobs caps both the model summary and the card list of a search.
const MaxListedJobs = 10

const (
	StatusSuccess   = "success"
	StatusNoResults = "no_results"
	StatusError     = "error"
)

// SearchSummary is the model-facing result of search_jobs.
type SearchSummary struct {
	Status         string `json:"status"`
	TotalJobsFound int    `json:"total_jobs_found,omitempty"`
	JobsSummary    string `json:"jobs_summary,omitempty"`
	Message        string `json:"message,omitempty"`
}

var salaryPrinter = message.NewPrinter(language.English)

func (r *Registry) searchJobs(ctx context.Context, args SearchArgs) (*Result, error) {
	jobs, err := r.source.Search(ctx, args.JobQuery())
	if err != nil {
		return nil, &ExecutionError{Tool: SearchJobs, Err: err}
	}

	if len(jobs) == 0 {
		return &Result{
			Tool: SearchJobs,
			ModelFacing: SearchSummary{
				Status:  StatusNoResults,
				Message: "No jobs found matching the search criteria.",
			},
			Cards: jobsearch.ToCards(nil, MaxListedJobs),
		}, nil
	}

	listed := jobs[:min(len(jobs), MaxListedJobs)]
	lines := make([]string, 0, len(listed))
	for i := range listed {
		lines = append(lines, summaryLine(&listed[i]))
	}

	return &Result{
		Tool: SearchJobs,
		ModelFacing: SearchSummary{
			Status:         StatusSuccess,
			TotalJobsFound: len(jobs),
			JobsSummary:    strings.Join(lines, "\n"),
		},
		Cards: jobsearch.ToCards(jobs, MaxListedJobs),
	}, nil
}

func summaryLine(j *jobsearch.Job) string {
	location := j.DisplayLocation()
	if location == "" {
		location = "Location not specified"
	}
	line := fmt.Sprintf("- %s at %s (%s)", j.Title, j.EmployerName, location)
	if j.HasSalaryRange() {
		line += " - " + salaryPrinter.Sprintf("$%.0f-$%.0f", *j.MinSalary, *j.MaxSalary)
	}
	return line
}
