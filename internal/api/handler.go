// Package api provides HTTP handlers for the JobBot API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/jobbot/internal/agent"
	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/store"
)

const defaultMaxRequestBodySize = 1 << 20

// ChatService is the chat surface the handlers call into.
type ChatService interface {
	CreateChat(ctx context.Context, userKey string) (*agent.NewChatResponse, error)
	ListChats(ctx context.Context, userKey string) ([]domain.ChatSessionSummary, error)
	GetChat(ctx context.Context, userKey, sessionID string) (*domain.ChatSession, error)
	HandleTurn(ctx context.Context, req agent.TurnRequest) (*agent.TurnResponse, error)
}

var _ ChatService = (*agent.Service)(nil)

// Handler provides common handler utilities.
type Handler struct {
	repo        store.Repository
	chats       ChatService
	limiter     *RateLimiter
	maxBodySize int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRateLimiter throttles chat messages per user.
func WithRateLimiter(rl *RateLimiter) HandlerOption {
	return func(h *Handler) { h.limiter = rl }
}

// WithMaxBodySize caps request bodies.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, chats ChatService, opts ...HandlerOption) *Handler {
	h := &Handler{
		repo:        repo,
		chats:       chats,
		maxBodySize: defaultMaxRequestBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into v and writes the error
// response itself when it fails.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
