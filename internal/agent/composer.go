package agent

import (
	"strings"

	"github.com/ashureev/jobbot/internal/domain"
)

// Prompt section headers, in the order they are emitted.
const (
	headerProfile = "[USER PROFILE]"
	headerSummary = "[CONVERSATION HISTORY SUMMARY]"
	headerRecent  = "[RECENT CONVERSATION]"
	headerCurrent = "[CURRENT MESSAGE]"
)

// ComposePrompt builds the prompt for one turn. Sections appear in a fixed
// order: profile, rolling summary, recent window, selection note, current
// message. Each section except the current message is left out entirely when
// its source is empty.
func ComposePrompt(chatCtx domain.ChatContext, message, selectedJobID string) string {
	var parts []string

	if chatCtx.PermanentContext != "" {
		parts = append(parts, headerProfile+"\n"+chatCtx.PermanentContext+"\n")
	}

	if chatCtx.ConversationSummary != "" {
		parts = append(parts, headerSummary+"\n"+chatCtx.ConversationSummary+"\n")
	}

	if len(chatCtx.RecentWindow) > 0 {
		parts = append(parts, headerRecent, renderMessages(chatCtx.RecentWindow), "")
	}

	if selectedJobID != "" {
		parts = append(parts, selectionNote(selectedJobID)+"\n")
	}

	parts = append(parts, headerCurrent+"\n"+formatLine(domain.RoleUser, message))

	return strings.Join(parts, "\n")
}

// selectionNote tells the model the turn is about a specific job.
func selectionNote(jobID string) string {
	return "[CONTEXT: User has selected job with ID: " + jobID + ". Provide insights about this specific job.]"
}

// selectedJobLine is appended to the prompt once the selected job resolved.
func selectedJobLine(card *domain.JobCard) string {
	return "\n\n[Selected Job Details: " + card.Title + " at " + card.Employer + "]"
}

func renderMessages(msgs []domain.Message) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = formatLine(m.Role, m.Text)
	}
	return strings.Join(lines, "\n")
}

func formatLine(role domain.Role, text string) string {
	return strings.ToUpper(string(role)) + ": " + text
}
