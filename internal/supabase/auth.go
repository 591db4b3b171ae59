package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

type AuthClient struct {
	client *Client
}

// SignUpResult holds the created user and, when the project auto-confirms
// email addresses, the first session.
type SignUpResult struct {
	User    *User
	Session *Session
}

func (a *AuthClient) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	resp, err := a.client.do(ctx, http.MethodPost, a.client.authURL+"/signup", body, "")
	if err != nil {
		return nil, err
	}

	// Auto-confirm projects answer with a session, others with the bare user.
	if gjson.GetBytes(resp, "access_token").Exists() {
		var s Session
		if err := json.Unmarshal(resp, &s); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return &SignUpResult{User: s.User, Session: &s}, nil
	}
	var u User
	if err := json.Unmarshal(resp, &u); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &SignUpResult{User: &u}, nil
}

func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return a.token(ctx, "password", body)
}

func (a *AuthClient) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return a.token(ctx, "refresh_token", body)
}

func (a *AuthClient) token(ctx context.Context, grant string, body []byte) (*Session, error) {
	resp, err := a.client.do(ctx, http.MethodPost, a.client.authURL+"/token?grant_type="+grant, body, "")
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(resp, &s); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &s, nil
}

// GetUser resolves an access token to its user.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := a.client.do(ctx, http.MethodGet, a.client.authURL+"/user", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(resp, &u); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &u, nil
}
