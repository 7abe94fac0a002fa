package users

import "time"

type User struct {
	ID           string
	Email        string
	Name         string
	Roles        []string
	PasswordHash []byte
	CreatedAt    time.Time
}

type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
