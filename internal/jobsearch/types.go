// Package jobsearch is a client for the JSearch job listings API.
package jobsearch

import (
	"strings"
)

// Query holds the filters accepted by the search endpoint.
type Query struct {
	Query           string
	Country         string
	DatePosted      string
	EmploymentTypes string
	JobRequirements string
	WorkFromHome    bool
	NumPages        int
}

// Job is a raw listing as returned by the API.
type Job struct {
	JobID          string              `json:"job_id"`
	Title          string              `json:"job_title"`
	EmployerName   string              `json:"employer_name"`
	EmployerLogo   string              `json:"employer_logo"`
	Location       string              `json:"job_location"`
	City           string              `json:"job_city"`
	State          string              `json:"job_state"`
	Country        string              `json:"job_country"`
	Description    string              `json:"job_description"`
	EmploymentType string              `json:"job_employment_type"`
	ApplyLink      string              `json:"job_apply_link"`
	IsRemote       bool                `json:"job_is_remote"`
	PostedAtUTC    string              `json:"job_posted_at_datetime_utc"`
	MinSalary      *float64            `json:"job_min_salary"`
	MaxSalary      *float64            `json:"job_max_salary"`
	SalaryPeriod   string              `json:"job_salary_period"`
	Highlights     map[string][]string `json:"job_highlights"`
}

// DisplayLocation returns the location string, assembling it from the
// structured fields when the API omitted the combined one.
func (j *Job) DisplayLocation() string {
	if j.Location != "" {
		return j.Location
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{j.City, j.State, j.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// HasSalaryRange reports whether both salary bounds are present.
func (j *Job) HasSalaryRange() bool {
	return j.MinSalary != nil && j.MaxSalary != nil && *j.MinSalary > 0 && *j.MaxSalary > 0
}

// Highlight returns a highlight sub-list such as "Qualifications". The result
// is never nil.
func (j *Job) Highlight(name string) []string {
	if items, ok := j.Highlights[name]; ok && items != nil {
		return items
	}
	return []string{}
}

type searchResponse struct {
	Status string `json:"status"`
	Data   []Job  `json:"data"`
}
