package memory

import (
	"context"
	"sort"
	"sync"

	identity "facility-cloud/internal/identity/domain"
)

// UserRepository is an in-memory user store used in tests and local runs.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]identity.User
}

// NewUserRepository constructs an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]identity.User{}}
}

func (r *UserRepository) Create(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*identity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := user
	return &copied, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) GetByInviteToken(_ context.Context, token string) (*identity.User, error) {
	if token == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.InviteToken == token {
			copied := user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) ListByTenant(_ context.Context, tenantID string) ([]identity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var users []identity.User
	for _, user := range r.users {
		if user.TenantID == tenantID {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *UserRepository) Update(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return identity.ErrNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || user.TenantID != tenantID {
		return identity.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// SessionRepository is an in-memory session store used in tests.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]identity.Session
}

// NewSessionRepository constructs an empty in-memory session repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: map[string]identity.Session{}}
}

func (r *SessionRepository) Create(_ context.Context, session *identity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *SessionRepository) GetByToken(_ context.Context, refreshTokenHash string) (*identity.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.RefreshToken == refreshTokenHash {
			copied := session
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *SessionRepository) Update(_ context.Context, session *identity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return identity.ErrNotFound
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// Count reports how many sessions are stored.
func (r *SessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
