package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ashureev/jobbot/internal/jobsearch"
)

const (
	defaultCountry    = "us"
	defaultDatePosted = "all"
	maxNumPages       = 3
)

var (
	datePostedValues     = []string{"all", "today", "3days", "week", "month"}
	employmentTypeValues = []string{"FULLTIME", "CONTRACTOR", "PARTTIME", "INTERN"}
	jobRequirementValues = []string{
		"under_3_years_experience",
		"more_than_3_years_experience",
		"no_experience",
		"no_degree",
	}

	countryPattern = regexp.MustCompile(`^[a-z]{2}$`)
)

// SearchArgs are the arguments of search_jobs.
type SearchArgs struct {
	Query           string `json:"query"`
	Country         string `json:"country"`
	DatePosted      string `json:"date_posted"`
	EmploymentTypes string `json:"employment_types"`
	JobRequirements string `json:"job_requirements"`
	WorkFromHome    bool   `json:"work_from_home"`
	NumPages        int    `json:"num_pages"`
}

// DetailsArgs are the arguments of get_job_details.
type DetailsArgs struct {
	JobID   string `json:"job_id"`
	Country string `json:"country"`
}

// ParseSearchArgs decodes and validates search_jobs arguments, filling in
// defaults. NumPages is clamped to [1, 3].
func ParseSearchArgs(raw map[string]any, strict bool) (SearchArgs, error) {
	var args SearchArgs
	if err := decodeArgs(SearchJobs, raw, strict, &args); err != nil {
		return SearchArgs{}, err
	}

	args.Query = strings.TrimSpace(args.Query)
	if args.Query == "" {
		return SearchArgs{}, &ArgumentError{Tool: SearchJobs, Field: "query", Reason: "is required"}
	}

	country, err := normalizeCountry(SearchJobs, args.Country)
	if err != nil {
		return SearchArgs{}, err
	}
	args.Country = country

	args.DatePosted = strings.ToLower(strings.TrimSpace(args.DatePosted))
	if args.DatePosted == "" {
		args.DatePosted = defaultDatePosted
	}
	if !slices.Contains(datePostedValues, args.DatePosted) {
		return SearchArgs{}, enumError(SearchJobs, "date_posted", args.DatePosted, datePostedValues)
	}

	if args.EmploymentTypes != "" {
		types := strings.Split(args.EmploymentTypes, ",")
		cleaned := make([]string, 0, len(types))
		for _, t := range types {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if !slices.Contains(employmentTypeValues, t) {
				return SearchArgs{}, enumError(SearchJobs, "employment_types", t, employmentTypeValues)
			}
			if !slices.Contains(cleaned, t) {
				cleaned = append(cleaned, t)
			}
		}
		args.EmploymentTypes = strings.Join(cleaned, ",")
	}

	args.JobRequirements = strings.ToLower(strings.TrimSpace(args.JobRequirements))
	if args.JobRequirements != "" && !slices.Contains(jobRequirementValues, args.JobRequirements) {
		return SearchArgs{}, enumError(SearchJobs, "job_requirements", args.JobRequirements, jobRequirementValues)
	}

	args.NumPages = min(max(args.NumPages, 1), maxNumPages)
	return args, nil
}

// JobQuery converts the arguments to a job source query.
func (a SearchArgs) JobQuery() jobsearch.Query {
	return jobsearch.Query{
		Query:           a.Query,
		Country:         a.Country,
		DatePosted:      a.DatePosted,
		EmploymentTypes: a.EmploymentTypes,
		JobRequirements: a.JobRequirements,
		WorkFromHome:    a.WorkFromHome,
		NumPages:        a.NumPages,
	}
}

// ParseDetailsArgs decodes and validates get_job_details arguments.
func ParseDetailsArgs(raw map[string]any, strict bool) (DetailsArgs, error) {
	var args DetailsArgs
	if err := decodeArgs(GetJobDetails, raw, strict, &args); err != nil {
		return DetailsArgs{}, err
	}

	args.JobID = strings.TrimSpace(args.JobID)
	if args.JobID == "" {
		return DetailsArgs{}, &ArgumentError{Tool: GetJobDetails, Field: "job_id", Reason: "is required"}
	}

	country, err := normalizeCountry(GetJobDetails, args.Country)
	if err != nil {
		return DetailsArgs{}, err
	}
	args.Country = country
	return args, nil
}

// decodeArgs round-trips the model's argument map through JSON into dst so
// that type mismatches surface as argument errors.
func decodeArgs(tool Name, raw map[string]any, strict bool, dst any) error {
	if raw == nil {
		raw = map[string]any{}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return &ArgumentError{Tool: tool, Reason: fmt.Sprintf("unencodable arguments: %v", err)}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ArgumentError{
				Tool:   tool,
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}
		}
		return &ArgumentError{Tool: tool, Reason: err.Error()}
	}
	return nil
}

func normalizeCountry(tool Name, country string) (string, error) {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return defaultCountry, nil
	}
	if !countryPattern.MatchString(country) {
		return "", &ArgumentError{Tool: tool, Field: "country", Reason: "must be an ISO-3166-1 alpha-2 code"}
	}
	return country, nil
}

func enumError(tool Name, field, got string, allowed []string) error {
	return &ArgumentError{
		Tool:   tool,
		Field:  field,
		Reason: fmt.Sprintf("%q is not one of %s", got, strings.Join(allowed, ", ")),
	}
}
