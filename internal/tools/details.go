package tools

import (
	"context"
	"errors"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/jobsearch"
)

// MaxDetailsDescription is the description budget sent to the model, in runes.
const MaxDetailsDescription = 2000

// JobDetailsPayload is the model-facing result of get_job_details.
type JobDetailsPayload struct {
	Status           string   `json:"status"`
	Message          string   `json:"message,omitempty"`
	Title            string   `json:"job_title,omitempty"`
	Employer         string   `json:"employer_name,omitempty"`
	Location         string   `json:"job_location,omitempty"`
	Description      string   `json:"job_description,omitempty"`
	EmploymentType   string   `json:"job_employment_type,omitempty"`
	ApplyLink        string   `json:"job_apply_link,omitempty"`
	Qualifications   []string `json:"job_qualifications,omitempty"`
	Responsibilities []string `json:"job_responsibilities,omitempty"`
	SalaryRange      string   `json:"salary_range,omitempty"`
}

func (r *Registry) getJobDetails(ctx context.Context, args DetailsArgs) (*Result, error) {
	job, err := r.source.Details(ctx, args.JobID, args.Country)
	if errors.Is(err, jobsearch.ErrJobNotFound) || (err == nil && job == nil) {
		return &Result{
			Tool: GetJobDetails,
			ModelFacing: JobDetailsPayload{
				Status:  StatusError,
				Message: "Job details not found.",
			},
		}, nil
	}
	if err != nil {
		return nil, &ExecutionError{Tool: GetJobDetails, Err: err}
	}

	card := jobsearch.ToCard(job)
	return &Result{
		Tool:        GetJobDetails,
		ModelFacing: detailsPayload(job),
		Job:         &card,
	}, nil
}

func detailsPayload(j *jobsearch.Job) JobDetailsPayload {
	p := JobDetailsPayload{
		Status:           StatusSuccess,
		Title:            j.Title,
		Employer:         j.EmployerName,
		Location:         j.DisplayLocation(),
		Description:      jobsearch.Truncate(j.Description, MaxDetailsDescription),
		EmploymentType:   j.EmploymentType,
		ApplyLink:        j.ApplyLink,
		Qualifications:   j.Highlight("Qualifications"),
		Responsibilities: j.Highlight("Responsibilities"),
	}
	if j.HasSalaryRange() {
		period := j.SalaryPeriod
		if period == "" {
			period = "yearly"
		}
		p.SalaryRange = salaryPrinter.Sprintf("$%.0f - $%.0f %s", *j.MinSalary, *j.MaxSalary, period)
	}
	return p
}

// DetailsCard fetches one job and converts it to a card. It is used outside
// the tool cycle to resolve the job a user selected.
func (r *Registry) DetailsCard(ctx context.Context, jobID string) (*domain.JobCard, error) {
	job, err := r.source.Details(ctx, jobID, defaultCountry)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, jobsearch.ErrJobNotFound
	}
	card := jobsearch.ToCard(job)
	return &card, nil
}
