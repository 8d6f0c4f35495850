package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/ashureev/jobbot/internal/domain"
)

// Compactor folds messages that fall out of the recent window into the
// rolling conversation summary.
type Compactor struct {
	model      Model
	windowSize int
	wordLimit  int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewCompactor creates a compactor using the model's summarization call.
func NewCompactor(model Model, cfg Config, logger *slog.Logger) *Compactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compactor{
		model:      model,
		windowSize: cfg.WindowSize,
		wordLimit:  cfg.SummaryWordLimit,
		timeout:    cfg.ModelTimeout,
		logger:     logger,
	}
}

// Partition splits a window into the entries beyond the last size messages
// and the last size messages themselves.
func Partition(window []domain.Message, size int) (overflow, retained []domain.Message) {
	if len(window) <= size {
		return nil, window
	}
	cut := len(window) - size
	return window[:cut], window[cut:]
}

// Compact trims the recent window to the configured size when it overflows,
// replacing the summary with one that covers the overflow. The returned
// context always satisfies the window bound. On a failed or empty
// summarization the prior summary is returned unchanged together with an
// error wrapping ErrCompactionFailed.
func (c *Compactor) Compact(ctx context.Context, chatCtx domain.ChatContext) (domain.ChatContext, error) {
	if len(chatCtx.RecentWindow) <= c.windowSize {
		return chatCtx, nil
	}

	overflow, retained := Partition(chatCtx.RecentWindow, c.windowSize)

	out := chatCtx
	out.RecentWindow = make([]domain.Message, len(retained))
	copy(out.RecentWindow, retained)

	entries := overflow
	if chatCtx.ConversationSummary != "" {
		entries = make([]domain.Message, 0, len(overflow)+1)
		entries = append(entries, domain.Message{
			Role: domain.RoleSystem,
			Text: "Previous summary: " + chatCtx.ConversationSummary,
		})
		entries = append(entries, overflow...)
	}

	summary, err := c.summarize(ctx, entries)
	if err != nil {
		c.logger.Warn("conversation summary failed, keeping previous summary",
			"overflow", len(overflow), "error", err)
		return out, fmt.Errorf("%w: %w", ErrCompactionFailed, err)
	}

	out.ConversationSummary = summary
	c.logger.Debug("compacted conversation", "overflow", len(overflow), "summary_words", len(strings.Fields(summary)))
	return out, nil
}

func (c *Compactor) summarize(ctx context.Context, entries []domain.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	summary, err := c.model.Summarize(ctx, summaryPrompt(entries, c.wordLimit))
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New("empty summary")
	}
	return capWords(summary, c.wordLimit), nil
}

// capWords cuts s after its limit-th word, keeping the original spacing.
func capWords(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	words := 0
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			if inWord && words == limit {
				return strings.TrimSpace(s[:i]) + "..."
			}
			inWord = false
			continue
		}
		if !inWord {
			inWord = true
			words++
		}
	}
	return s
}
