package gateway

import (
	"context"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// LoginResult is the payload returned by a successful credential exchange.
type LoginResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges credentials for a session token. On success the token is
// installed on the client for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	req := map[string]string{
		"email":    email,
		"password": password,
	}
	var result LoginResult
	if err := c.post(ctx, "/users/login", req, &result); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(result.Token)
	return result, nil
}

// Register creates a new account. It does not log the account in.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	req := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}
	return c.post(ctx, "/users/register", req, nil)
}
