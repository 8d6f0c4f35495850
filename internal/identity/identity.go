// Package identity resolves the user key every request acts as.
//
// A trusted front end may pass the key in the X-JobBot-User header. Without
// it the user is anonymous and identified by a long-lived device cookie.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	AnonCookieName   = "jobbot_anon_id"
	UserHeaderName   = "X-JobBot-User"
	anonCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const userKeyKey contextKey = iota

var (
	anonIDPattern  = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	userKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._@:-]{1,128}$`)
)

// UserKeyFromContext extracts the user key from the request context.
func UserKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userKeyKey).(string); ok {
		return v
	}
	return ""
}

// WithUserKey returns a context carrying key.
func WithUserKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, userKeyKey, key)
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func setAnonCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		setAnonCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateAnonID()
	if err != nil {
		return "", err
	}
	setAnonCookie(w, id, isDev)
	return id, nil
}

// Middleware injects the user key. A malformed header is rejected rather than
// silently downgraded to an anonymous identity.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(UserHeaderName))
			if key != "" && !userKeyPattern.MatchString(key) {
				http.Error(w, `{"error":"invalid user key"}`, http.StatusBadRequest)
				return
			}

			if key == "" {
				id, err := getOrCreateAnonID(w, r, isDev)
				if err != nil {
					http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
					return
				}
				key = id
			}

			next.ServeHTTP(w, r.WithContext(WithUserKey(r.Context(), key)))
		})
	}
}
