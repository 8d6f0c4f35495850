package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/jobbot/internal/agent"
	"github.com/ashureev/jobbot/internal/identity"
)

// ChatHandler serves chat sessions and turns.
type ChatHandler struct {
	*Handler
}

// NewChatHandler creates a chat handler.
func NewChatHandler(h *Handler) *ChatHandler {
	return &ChatHandler{Handler: h}
}

// MessageRequest is one user message.
type MessageRequest struct {
	Message       string `json:"message"`
	SelectedJobID string `json:"selected_job_id,omitempty"`
}

// CreateChat starts a chat from the caller's profile.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userKey := identity.UserKeyFromContext(r.Context())

	chat, err := h.chats.CreateChat(r.Context(), userKey)
	if err != nil {
		h.writeServiceError(w, userKey, "create chat", err)
		return
	}
	JSON(w, http.StatusCreated, chat)
}

// ListChats lists the caller's chats.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userKey := identity.UserKeyFromContext(r.Context())

	chats, err := h.chats.ListChats(r.Context(), userKey)
	if err != nil {
		h.writeServiceError(w, userKey, "list chats", err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"chats": chats})
}

// GetChat returns one chat with its messages.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userKey := identity.UserKeyFromContext(r.Context())

	chat, err := h.chats.GetChat(r.Context(), userKey, chi.URLParam(r, "chatID"))
	if err != nil {
		h.writeServiceError(w, userKey, "get chat", err)
		return
	}
	JSON(w, http.StatusOK, chat)
}

// SendMessage runs one turn. A failed turn still answers 200 with the
// apology text; only unknown chats and bad input are HTTP errors.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userKey := identity.UserKeyFromContext(r.Context())
	chatID := chi.URLParam(r, "chatID")

	if h.limiter != nil && !h.limiter.Allow(userKey) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req MessageRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.chats.HandleTurn(r.Context(), agent.TurnRequest{
		UserKey:       userKey,
		SessionID:     chatID,
		Text:          req.Message,
		SelectedJobID: strings.TrimSpace(req.SelectedJobID),
	})
	if err != nil {
		h.writeServiceError(w, userKey, "send message", err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chats", func(r chi.Router) {
		r.Post("/", h.CreateChat)
		r.Get("/", h.ListChats)
		r.Get("/{chatID}", h.GetChat)
		r.Post("/{chatID}/messages", h.SendMessage)
	})
}

func (h *ChatHandler) writeServiceError(w http.ResponseWriter, userKey, op string, err error) {
	switch {
	case agent.IsNotFound(err):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, agent.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "message is required")
	default:
		slog.Error("Chat request failed", "op", op, "user_id", userKey, "error", err)
		Error(w, http.StatusInternalServerError, "failed to "+op)
	}
}
