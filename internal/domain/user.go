// Package domain contains core domain types for the JobBot application.
package domain

import (
	"strings"
	"time"
)

// Profile is the confirmed career profile of a user. It is the only input used
// to build a chat session's permanent context.
type Profile struct {
	UserKey        string    `json:"user_key"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Location       string    `json:"location"`
	Skills         []string  `json:"skills"`
	Experience     []string  `json:"experience"`
	ProfileSummary string    `json:"profile_summary"`
	Education      []string  `json:"education,omitempty"`
	Certifications []string  `json:"certificationsAndAchievementsAndAwards,omitempty"`
	Projects       []string  `json:"projects,omitempty"`
	About          string    `json:"about,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FirstName returns the first word of the profile name, or "there" when the
// name is empty.
func (p *Profile) FirstName() string {
	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
