package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/supabase"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHandler struct {
	Auth    AuthService
	Limiter *RateLimiter
	Log     logrus.FieldLogger
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Route("/api/auth", func(r chi.Router) {
		if h.Limiter != nil {
			r.Use(h.Limiter.Handler)
		}
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
	})
}

func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return c, false
	}
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" || c.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return c, false
	}
	return c, true
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	c, ok := readCredentials(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.SignUp(ctx, c.Email, c.Password)
	if err != nil {
		var se *supabase.Error
		if errors.As(err, &se) && se.StatusCode < 500 {
			writeError(w, http.StatusBadRequest, se.Message)
			return
		}
		h.Log.WithError(err).Error("sign up")
		writeError(w, http.StatusBadGateway, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registration successful",
		"user":    res.User,
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	c, ok := readCredentials(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Auth.SignInWithPassword(ctx, c.Email, c.Password)
	if err != nil {
		h.rejectSession(w, err, "sign in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"session": s,
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Auth.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		h.rejectSession(w, err, "refresh token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": s})
}

func (h *AuthHandler) rejectSession(w http.ResponseWriter, err error, op string) {
	var se *supabase.Error
	if errors.As(err, &se) && se.StatusCode < 500 {
		writeError(w, http.StatusUnauthorized, se.Message)
		return
	}
	h.Log.WithError(err).Error(op)
	writeError(w, http.StatusBadGateway, "authentication service unavailable")
}
