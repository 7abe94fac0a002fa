package session

import "slices"

// Credential is the persisted session of the signed-in user: the
// access/refresh token pair plus identity claims returned at login.
type Credential struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	UserID       string   `json:"userId"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Roles        []string `json:"roles"`
}

// HasRole reports whether the credential carries role.
func (c *Credential) HasRole(role string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Roles, role)
}

func (c *Credential) clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Roles = slices.Clone(c.Roles)
	return &cp
}
