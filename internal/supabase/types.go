// Package supabase is a small client for the Supabase Auth (GoTrue) and
// Storage HTTP APIs.
package supabase

import (
	"fmt"
	"time"
)

type Config struct {
	// ProjectURL is the project base URL, e.g. https://xyz.supabase.co.
	ProjectURL string
	AnonKey    string
	// ServiceKey is required for Storage signing; it bypasses RLS.
	ServiceKey string
	Timeout    time.Duration
}

type User struct {
	ID               string                 `json:"id"`
	Aud              string                 `json:"aud,omitempty"`
	Role             string                 `json:"role,omitempty"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time             `json:"last_sign_in_at,omitempty"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Error is a non-2xx response from Supabase.
type Error struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase %d: %s", e.StatusCode, e.Message)
}
