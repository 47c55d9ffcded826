package api

import (
	"context"
	"net/http"

	"budgettracker/internal/core"
)

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token string
	User  core.User
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Gender   string `json:"gender,omitempty"`
	Currency string `json:"currency,omitempty"`
	Language string `json:"language,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	var out struct {
		Token string   `json:"token"`
		User  wireUser `json:"user"`
	}
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", in, &out); err != nil {
		return LoginResult{}, err
	}
	if !UsableToken(out.Token) {
		return LoginResult{}, &StatusError{Op: "login", StatusCode: http.StatusUnauthorized, Message: "backend returned no usable token"}
	}
	return LoginResult{Token: out.Token, User: out.User.toCore()}, nil
}

// Signup registers a new user with the USER role.
func (c *Client) Signup(ctx context.Context, s core.Signup) error {
	in := struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}{s.Name, s.Email, s.Password, string(core.RoleUser)}
	var msg string
	return c.do(ctx, "signup", http.MethodPost, "/auth/signup", in, &msg)
}

func (c *Client) Profile(ctx context.Context) (core.User, error) {
	var out wireUser
	if err := c.do(ctx, "get profile", http.MethodGet, "/auth/profile", nil, &out); err != nil {
		return core.User{}, err
	}
	return out.toCore(), nil
}

func (c *Client) UpdateProfile(ctx context.Context, p ProfileUpdate) error {
	var msg string
	return c.do(ctx, "update profile", http.MethodPut, "/auth/profile", p, &msg)
}
