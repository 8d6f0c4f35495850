package jobsearch

import (
	"github.com/ashureev/jobbot/internal/domain"
)

// MaxCardDescription is the description budget of a job card, in runes.
const MaxCardDescription = 300

// ToCard converts a raw listing into the card shown to the user.
func ToCard(j *Job) domain.JobCard {
	card := domain.JobCard{
		JobID:          j.JobID,
		Title:          j.Title,
		Employer:       j.EmployerName,
		EmployerLogo:   j.EmployerLogo,
		Location:       j.DisplayLocation(),
		EmploymentType: j.EmploymentType,
		IsRemote:       j.IsRemote,
		PostedAt:       j.PostedAtUTC,
		Description:    Truncate(j.Description, MaxCardDescription),
		ApplyLink:      j.ApplyLink,
	}
	if j.HasSalaryRange() {
		card.Salary = &domain.SalaryRange{
			Min:    *j.MinSalary,
			Max:    *j.MaxSalary,
			Period: j.SalaryPeriod,
		}
	}
	return card
}

// ToCards converts up to limit listings. The result is never nil.
func ToCards(jobs []Job, limit int) []domain.JobCard {
	n := min(len(jobs), limit)
	cards := make([]domain.JobCard, 0, n)
	for i := range n {
		cards = append(cards, ToCard(&jobs[i]))
	}
	return cards
}

// Truncate cuts s to at most limit runes, marking the cut with "...".
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
