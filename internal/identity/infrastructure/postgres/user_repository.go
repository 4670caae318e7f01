package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	identity "facility-cloud/internal/identity/domain"
)

// UserRepository stores users in PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *sql.DB) (*UserRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &UserRepository{db: db}, nil
}

const userColumns = `id, tenant_id, email, name, password_hash, role, status,
	invite_token, invite_expires_at, last_login_at, created_at, updated_at`

// Create inserts a user.
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil user repository")
	}
	if user == nil {
		return errors.New("postgres: nil user")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, tenant_id, email, name, password_hash, role, status,
			invite_token, invite_expires_at, last_login_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		user.ID,
		user.TenantID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Status,
		nullableString(user.InviteToken),
		nullableTime(user.InviteExpiresAt),
		nullableTime(user.LastLoginAt),
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	)
	return err
}

// GetByID loads one user by id, nil when absent.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	return r.getWhere(ctx, "id = $1", id)
}

// GetByEmail loads one user by email, nil when absent.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.getWhere(ctx, "email = $1", email)
}

// GetByInviteToken loads one pending user by invite token, nil when absent.
func (r *UserRepository) GetByInviteToken(ctx context.Context, token string) (*identity.User, error) {
	return r.getWhere(ctx, "invite_token = $1", token)
}

func (r *UserRepository) getWhere(ctx context.Context, where string, arg any) (*identity.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil user repository")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListByTenant returns all users of one tenant ordered by creation time.
func (r *UserRepository) ListByTenant(ctx context.Context, tenantID string) ([]identity.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil user repository")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE tenant_id = $1
		ORDER BY created_at ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// Update rewrites the mutable columns of a user.
func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil user repository")
	}
	if user == nil {
		return errors.New("postgres: nil user")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2,
			name = $3,
			password_hash = $4,
			role = $5,
			status = $6,
			invite_token = $7,
			invite_expires_at = $8,
			last_login_at = $9,
			updated_at = $10
		WHERE id = $1
	`,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Status,
		nullableString(user.InviteToken),
		nullableTime(user.InviteExpiresAt),
		nullableTime(user.LastLoginAt),
		user.UpdatedAt.UTC(),
	)
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

// Delete removes a user scoped to a tenant.
func (r *UserRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil user repository")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*identity.User, error) {
	var (
		user            identity.User
		inviteToken     sql.NullString
		inviteExpiresAt sql.NullTime
		lastLoginAt     sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&inviteToken,
		&inviteExpiresAt,
		&lastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.InviteToken = inviteToken.String
	if inviteExpiresAt.Valid {
		user.InviteExpiresAt = inviteExpiresAt.Time.UTC()
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = lastLoginAt.Time.UTC()
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullableTime(value time.Time) sql.NullTime {
	return sql.NullTime{Time: value.UTC(), Valid: !value.IsZero()}
}
