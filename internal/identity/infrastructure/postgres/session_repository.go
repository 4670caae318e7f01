package postgres

import (
	"context"
	"database/sql"
	"errors"

	identity "facility-cloud/internal/identity/domain"
)

// SessionRepository stores refresh sessions in PostgreSQL.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(db *sql.DB) (*SessionRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &SessionRepository{db: db}, nil
}

// Create inserts a session.
func (r *SessionRepository) Create(ctx context.Context, session *identity.Session) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil session repository")
	}
	if session == nil {
		return errors.New("postgres: nil session")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, refresh_token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.ID,
		session.UserID,
		session.RefreshToken,
		session.ExpiresAt.UTC(),
		session.CreatedAt.UTC(),
	)
	return err
}

// GetByToken loads one session by refresh token digest, nil when absent.
func (r *SessionRepository) GetByToken(ctx context.Context, refreshTokenHash string) (*identity.Session, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil session repository")
	}
	var session identity.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, refresh_token, expires_at, created_at
		FROM sessions
		WHERE refresh_token = $1
	`, refreshTokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshToken,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	return &session, nil
}

// Update rewrites the token digest and expiry of a session.
func (r *SessionRepository) Update(ctx context.Context, session *identity.Session) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil session repository")
	}
	if session == nil {
		return errors.New("postgres: nil session")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET refresh_token = $2, expires_at = $3
		WHERE id = $1
	`, session.ID, session.RefreshToken, session.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return identity.ErrNotFound
	}
	return nil
}

// Delete removes one session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil session repository")
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteByUser removes all sessions of one user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil session repository")
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}
