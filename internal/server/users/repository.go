package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/coursepay/internal/common"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	// Take removes the token and returns it, so a refresh token is usable once.
	Take(ctx context.Context, token string) (*RefreshToken, error)
}

// MemoryRepository keeps users in process memory, keyed by lower-cased email.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: make(map[string]*User)}
}

func (r *MemoryRepository) Create(_ context.Context, user *User) (*User, error) {
	key := strings.ToLower(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[key]; ok {
		return nil, common.ErrConflict
	}
	u := *user
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	r.byEmail[key] = &u

	out := u
	return &out, nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *u
	return &out, nil
}

type MemoryRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

func NewMemoryRefreshTokenRepository() *MemoryRefreshTokenRepository {
	return &MemoryRefreshTokenRepository{tokens: make(map[string]RefreshToken)}
}

func (r *MemoryRefreshTokenRepository) Create(_ context.Context, userID string, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *MemoryRefreshTokenRepository) Take(_ context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.tokens, token)
	return &rt, nil
}
