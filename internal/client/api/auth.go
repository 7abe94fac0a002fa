package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/coursepay/internal/client/session"
)

const LoginPath = "/auth/login"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email/password and stores the returned
// credential. A rejected login is an *HTTPError; it never triggers a refresh.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Credential, error) {
	payload, err := encodeBody(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	raw, err := c.send(ctx, http.MethodPost, LoginPath, payload, nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := raw.result()
	if err != nil {
		return nil, err
	}

	var cred session.Credential
	if err := resp.Decode(&cred); err != nil {
		return nil, err
	}
	if cred.Token == "" {
		return nil, errors.New("login response missing token")
	}
	if cred.Email == "" {
		cred.Email = email
	}

	if err := c.store.Save(ctx, &cred); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.logger.Info(ctx, "logged in", "user_id", cred.UserID)
	return &cred, nil
}

// Logout forgets the stored credential.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Session returns the stored credential, or nil when signed out.
func (c *Client) Session(ctx context.Context) (*session.Credential, error) {
	return c.store.Load(ctx)
}
