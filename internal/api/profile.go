package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/jobbot/internal/domain"
	"github.com/ashureev/jobbot/internal/identity"
)

// ProfileHandler serves the confirmed profile a chat is built from.
type ProfileHandler struct {
	*Handler
	now func() time.Time
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(h *Handler) *ProfileHandler {
	return &ProfileHandler{Handler: h, now: time.Now}
}

// ProfileRequest is the editable part of a profile.
type ProfileRequest struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Location       string   `json:"location"`
	Skills         []string `json:"skills"`
	Experience     []string `json:"experience"`
	ProfileSummary string   `json:"profile_summary"`
	Education      []string `json:"education"`
	Certifications []string `json:"certificationsAndAchievementsAndAwards"`
	Projects       []string `json:"projects"`
	About          string   `json:"about"`
}

// GetProfile returns the caller's profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userKey := identity.UserKeyFromContext(r.Context())

	profile, err := h.repo.GetProfile(r.Context(), userKey)
	if err != nil {
		slog.Error("Failed to load profile", "user_id", userKey, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "profile not found")
		return
	}
	JSON(w, http.StatusOK, profile)
}

// PutProfile creates or replaces the caller's profile. Existing chats keep
// the permanent context they were created with.
func (h *ProfileHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	userKey := identity.UserKeyFromContext(r.Context())

	var req ProfileRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}

	existing, err := h.repo.GetProfile(r.Context(), userKey)
	if err != nil {
		slog.Error("Failed to load profile", "user_id", userKey, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	now := h.now().UTC()
	profile := &domain.Profile{
		UserKey:        userKey,
		Name:           req.Name,
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Location:       strings.TrimSpace(req.Location),
		Skills:         compact(req.Skills),
		Experience:     compact(req.Experience),
		ProfileSummary: strings.TrimSpace(req.ProfileSummary),
		Education:      compact(req.Education),
		Certifications: compact(req.Certifications),
		Projects:       compact(req.Projects),
		About:          strings.TrimSpace(req.About),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing != nil {
		profile.CreatedAt = existing.CreatedAt
	}

	if err := h.repo.UpsertProfile(r.Context(), profile); err != nil {
		slog.Error("Failed to save profile", "user_id", userKey, "error", err)
		Error(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	slog.Info("Profile saved", "user_id", userKey, "skills", len(profile.Skills))
	JSON(w, http.StatusOK, profile)
}

// RegisterRoutes registers profile routes.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/profile", h.GetProfile)
	r.Put("/api/profile", h.PutProfile)
}

// compact trims entries and drops blanks.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
