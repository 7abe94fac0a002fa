// Package session persists the current Credential. It is the client's only
// durable state: one JSON blob under a fixed key.
//
// Contract shared by every Store:
//   - Load returns (nil, nil) when no session exists.
//   - Save replaces the whole credential.
//   - UpdateTokens mutates only the token fields; an empty refresh token keeps
//     the stored one. It fails with ErrNoSession when nothing is stored.
//   - Clear is idempotent.
package session

import (
	"context"
	"errors"
	"sync"
)

// StorageKey is the fixed key the credential blob lives under.
const StorageKey = "session"

var ErrNoSession = errors.New("no session")

type Store interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, c *Credential) error
	UpdateTokens(ctx context.Context, token, refreshToken string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	cred *Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, c *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = c.clone()
	return nil
}

func (m *MemoryStore) UpdateTokens(ctx context.Context, token, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return ErrNoSession
	}
	m.cred.Token = token
	if refreshToken != "" {
		m.cred.RefreshToken = refreshToken
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	return nil
}
