// Package services contains application services for the checkout CLI.
// This file defines the authentication service: login, logout and access to
// the persisted session.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursepay/internal/client/session"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Authenticator is the part of api.Client the auth service drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*session.Credential, error)
	Logout(ctx context.Context) error
	Session(ctx context.Context) (*session.Credential, error)
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist the credential.
//   - Logout: drop the persisted credential.
//   - Current: the stored credential, or ErrNotLoggedIn.
type AuthService interface {
	Login(ctx context.Context, email string, password []byte) (*session.Credential, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*session.Credential, error)
}

type authService struct {
	client Authenticator
}

func NewAuthService(client Authenticator) AuthService {
	return &authService{client: client}
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (*session.Credential, error) {
	if email == "" || len(password) == 0 {
		return nil, errors.New("email and password are required")
	}
	cred, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	return cred, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.client.Logout(ctx)
}

func (a *authService) Current(ctx context.Context) (*session.Credential, error) {
	cred, err := a.client.Session(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.Token == "" {
		return nil, ErrNotLoggedIn
	}
	return cred, nil
}
