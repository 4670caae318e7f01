package identity

import "context"

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByInviteToken(ctx context.Context, token string) (*User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, tenantID, id string) error
}

// SessionRepository persists refresh sessions. Only token digests are
// stored; lookups take the digest, never the raw token.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByToken(ctx context.Context, refreshTokenHash string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}
