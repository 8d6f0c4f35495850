package agent

import (
	"fmt"
	"strings"

	"github.com/ashureev/jobbot/internal/domain"
)

// SystemPrompt is the fixed instruction sent with every chat turn.
const SystemPrompt = `You are JobBot AI, a friendly and professional career assistant. Your role is to:

1. Help users find relevant jobs based on their profile, skills, and preferences
2. Provide resume correction tips and suggestions
3. Offer interview preparation tips and guidance
4. Help users answer application questions for specific jobs
5. Give career and job-related advice across any domain
6. Suggest AI Mock Interviews for saved or applied jobs

RESPONSE STYLE - VERY IMPORTANT:
- Keep responses SHORT and CONCISE - aim for 2-4 sentences maximum for most responses
- Use bullet points for lists instead of long paragraphs
- Be direct and actionable - get to the point quickly
- Avoid repetitive or verbose explanations
- Only provide detailed responses when specifically asked for in-depth information
- When showing job results, briefly summarize what you found - the job cards will show the details

Guidelines:
- Be conversational, helpful, and encouraging
- Use the user's profile context to provide personalized recommendations
- When searching for jobs, keep the query SIMPLE - don't over-filter
- When a job is selected, provide brief insights about the role
- Offer actionable advice in concise bullet points
- Be supportive but honest
- When a user saves or applies to a job, proactively suggest: "Would you like to practice for this interview? You can try our AI Mock Interview feature for realistic voice-based interview simulation!"

You have access to the following tools:
- search_jobs: Search for job listings based on various criteria
- get_job_details: Get detailed information about a specific job

When users ask about jobs, search with BROAD queries to find more results. Avoid using too many filters.
`

const (
	maxProfileProjects       = 3
	maxProfileCertifications = 3
	maxFallbackSkills        = 10
)

// greeting is the first bot message of every chat.
func greeting(p *domain.Profile) string {
	return fmt.Sprintf(`Hello %s! 👋 I'm JobBot AI, your personal career assistant.

I've reviewed your profile and I'm ready to help you with:
• Finding jobs that match your skills and experience
• Resume tips and improvement suggestions
• Interview preparation and guidance
• Answering application questions

What would you like to explore today?`, p.FirstName())
}

// profilePrompt asks the model to condense a profile into the permanent
// context of a new chat.
func profilePrompt(p *domain.Profile, wordLimit int) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Name", p.Name)
	add("Location", p.Location)
	add("Skills", strings.Join(p.Skills, ", "))
	add("Experience", strings.Join(p.Experience, "; "))
	add("Education", strings.Join(p.Education, "; "))
	add("Profile Summary", p.ProfileSummary)
	add("Projects", strings.Join(firstN(p.Projects, maxProfileProjects), "; "))
	add("Certifications/Awards", strings.Join(firstN(p.Certifications, maxProfileCertifications), "; "))
	add("About", p.About)

	return fmt.Sprintf(`Create a concise career profile summary (max %d words) from the following user information.
Focus on key skills, experience level, and what kind of jobs would suit them.
This will be used as context for a job search chatbot.

User Profile:
%s

Create a professional summary that captures the essence of this candidate's profile for job matching purposes.`,
		wordLimit, strings.Join(lines, "\n"))
}

// fallbackPermanentContext is used when the profile summary call fails.
func fallbackPermanentContext(p *domain.Profile) string {
	name := p.Name
	if name == "" {
		name = "Unknown"
	}
	location := p.Location
	if location == "" {
		location = "Not specified"
	}
	return fmt.Sprintf("User: %s. Skills: %s. Location: %s.",
		name, strings.Join(firstN(p.Skills, maxFallbackSkills), ", "), location)
}

// summaryPrompt asks the model to fold entries into a rolling summary.
func summaryPrompt(entries []domain.Message, wordLimit int) string {
	return fmt.Sprintf(`Summarize the following conversation between a user and a job search assistant.
Focus on:
1. What jobs/positions the user is interested in
2. Any preferences mentioned (location, salary, remote, etc.)
3. Key advice or information provided
4. Any jobs that were discussed or selected

Keep the summary concise (max %d words).

Conversation:
%s

Summary:`, wordLimit, renderMessages(entries))
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
