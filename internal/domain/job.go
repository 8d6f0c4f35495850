package domain

// SalaryRange is only set on a JobCard when both bounds are known.
type SalaryRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Period string  `json:"period,omitempty"`
}

// JobCard is the denormalized display record shown to the user.
type JobCard struct {
	JobID          string       `json:"job_id"`
	Title          string       `json:"job_title"`
	Employer       string       `json:"employer_name"`
	EmployerLogo   string       `json:"employer_logo,omitempty"`
	Location       string       `json:"job_location"`
	EmploymentType string       `json:"job_employment_type,omitempty"`
	IsRemote       bool         `json:"job_is_remote"`
	PostedAt       string       `json:"job_posted_at,omitempty"`
	Description    string       `json:"job_description"`
	ApplyLink      string       `json:"job_apply_link,omitempty"`
	Salary         *SalaryRange `json:"salary_range,omitempty"`
}
