package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"facility-cloud/internal/audit"
	"facility-cloud/internal/auth"
	identity "facility-cloud/internal/identity/domain"
)

const inviteTTL = 7 * 24 * time.Hour

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// TokenConfig holds signing material and lifetimes for issued tokens.
type TokenConfig struct {
	Secret             []byte
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	RefreshTTLRemember time.Duration
}

// Service handles authentication and user management.
type Service struct {
	users    identity.UserRepository
	sessions identity.SessionRepository
	tokens   TokenConfig
	auditor  audit.Logger
	clock    Clock
}

// ServiceOption customizes the identity service.
type ServiceOption func(*Service)

// WithAuditor assigns an activity logger.
func WithAuditor(logger audit.Logger) ServiceOption {
	return func(s *Service) {
		s.auditor = logger
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs an identity service.
func NewService(users identity.UserRepository, sessions identity.SessionRepository, tokens TokenConfig, opts ...ServiceOption) (*Service, error) {
	if users == nil || sessions == nil {
		return nil, errors.New("identity: nil repository")
	}
	if len(tokens.Secret) == 0 {
		return nil, errors.New("identity: empty token secret")
	}
	if tokens.AccessTTL <= 0 {
		tokens.AccessTTL = 30 * time.Minute
	}
	if tokens.RefreshTTL <= 0 {
		tokens.RefreshTTL = 7 * 24 * time.Hour
	}
	if tokens.RefreshTTLRemember <= 0 {
		tokens.RefreshTTLRemember = 30 * 24 * time.Hour
	}
	service := &Service{users: users, sessions: sessions, tokens: tokens, clock: systemClock{}}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// LoginResult carries the user and issued tokens.
type LoginResult struct {
	User         *identity.User
	AccessToken  string
	RefreshToken string
}

// Login verifies credentials, records the session and issues tokens.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	if s == nil {
		return nil, errors.New("identity: nil service")
	}
	if email == "" || password == "" {
		return nil, identity.ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, identity.ErrInvalidCredentials
	}
	if user.Status != identity.StatusActive {
		return nil, identity.ErrInactive
	}

	role, _ := auth.NormalizeRole(user.Role)
	accessToken, err := auth.IssueToken(s.tokens.Secret, auth.TokenTypeAccess, user.ID, user.TenantID, role, s.tokens.AccessTTL)
	if err != nil {
		return nil, err
	}
	refreshTTL := s.tokens.RefreshTTL
	if rememberMe {
		refreshTTL = s.tokens.RefreshTTLRemember
	}
	refreshToken, err := auth.IssueToken(s.tokens.Secret, auth.TokenTypeRefresh, user.ID, user.TenantID, role, refreshTTL)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	session := identity.Session{
		ID:           newID("session"),
		UserID:       user.ID,
		RefreshToken: hashToken(refreshToken),
		ExpiresAt:    now.Add(refreshTTL),
		CreatedAt:    now,
	}
	if err := s.sessions.Create(ctx, &session); err != nil {
		return nil, err
	}

	user.LastLoginAt = now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return &LoginResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshResult carries the rotated token pair.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// Refresh exchanges a refresh token for a new token pair. The presented
// token is consumed: the session is rewritten with the digest of the new
// refresh token, keeping the original session expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if s == nil {
		return nil, errors.New("identity: nil service")
	}
	claims, err := auth.ParseToken(refreshToken, s.tokens.Secret, auth.TokenTypeRefresh)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	session, err := s.sessions.GetByToken(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, identity.ErrNotFound
	}
	now := s.clock.Now().UTC()
	if session.Expired(now) {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, auth.ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != identity.StatusActive {
		return nil, identity.ErrInactive
	}
	if claims.TenantID != user.TenantID {
		return nil, auth.ErrTenantMismatch
	}
	role, _ := auth.NormalizeRole(user.Role)
	accessToken, err := auth.IssueToken(s.tokens.Secret, auth.TokenTypeAccess, user.ID, user.TenantID, role, s.tokens.AccessTTL)
	if err != nil {
		return nil, err
	}
	newRefresh, err := auth.IssueToken(s.tokens.Secret, auth.TokenTypeRefresh, user.ID, user.TenantID, role, session.ExpiresAt.Sub(now))
	if err != nil {
		return nil, err
	}
	session.RefreshToken = hashToken(newRefresh)
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	return &RefreshResult{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout revokes all sessions of the calling user.
func (s *Service) Logout(ctx context.Context) error {
	if s == nil {
		return errors.New("identity: nil service")
	}
	userID := auth.SubjectFromContext(ctx)
	if userID == "" {
		return nil
	}
	return s.sessions.DeleteByUser(ctx, userID)
}

// Me returns the calling user.
func (s *Service) Me(ctx context.Context) (*identity.User, error) {
	if s == nil {
		return nil, errors.New("identity: nil service")
	}
	userID := auth.SubjectFromContext(ctx)
	if userID == "" {
		return nil, auth.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, identity.ErrNotFound
	}
	return user, nil
}

// List returns all users of the caller's tenant.
func (s *Service) List(ctx context.Context) ([]identity.User, error) {
	if s == nil {
		return nil, errors.New("identity: nil service")
	}
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, auth.ErrUnauthorized
	}
	return s.users.ListByTenant(ctx, tenantID)
}

// Invite creates a pending user with an invite token.
func (s *Service) Invite(ctx context.Context, email, name, role string) (*identity.User, error) {
	if s == nil {
		return nil, errors.New("identity: nil service")
	}
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, auth.ErrUnauthorized
	}
	if _, ok := auth.NormalizeRole(role); !ok {
		return nil, errors.New("identity: invalid role")
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, identity.ErrEmailTaken
	}

	now := s.clock.Now().UTC()
	inviteToken := newInviteToken()
	user := identity.User{
		ID:              newID("user"),
		TenantID:        tenantID,
		Email:           email,
		Name:            name,
		Role:            role,
		Status:          identity.StatusPending,
		InviteToken:     hashToken(inviteToken),
		InviteExpiresAt: now.Add(inviteTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return nil, err
	}
	s.log(ctx, "user.invite", user.ID, map[string]any{"email": email, "role": role})
	// The raw token goes back to the caller once; only its digest is stored.
	user.InviteToken = inviteToken
	return &user, nil
}

// AcceptInvite activates a pending user and sets the password.
func (s *Service) AcceptInvite(ctx context.Context, token, password string) (*identity.User, error) {
	if s == nil {
		return nil, errors.New("identity: nil service")
	}
	if token == "" {
		return nil, identity.ErrNotFound
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}
	user, err := s.users.GetByInviteToken(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != identity.StatusPending {
		return nil, identity.ErrNotFound
	}
	now := s.clock.Now().UTC()
	if now.After(user.InviteExpiresAt) {
		return nil, identity.ErrInviteExpired
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.Status = identity.StatusActive
	user.InviteToken = ""
	user.InviteExpiresAt = time.Time{}
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser changes name, role or status of a tenant user.
func (s *Service) UpdateUser(ctx context.Context, id, name, role, status string) (*identity.User, error) {
	if s == nil {
		return nil, errors.New("identity: nil service")
	}
	tenantID := auth.TenantIDFromContext(ctx)
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || (tenantID != "" && user.TenantID != tenantID) {
		return nil, identity.ErrNotFound
	}
	if name != "" {
		user.Name = name
	}
	if role != "" {
		if _, ok := auth.NormalizeRole(role); !ok {
			return nil, errors.New("identity: invalid role")
		}
		user.Role = role
	}
	if status != "" {
		if !identity.ValidStatus(status) {
			return nil, errors.New("identity: invalid status")
		}
		user.Status = status
		if status != identity.StatusActive {
			_ = s.sessions.DeleteByUser(ctx, user.ID)
		}
	}
	user.UpdatedAt = s.clock.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log(ctx, "user.update", user.ID, map[string]any{"name": name, "role": role, "status": status})
	return user, nil
}

// DeleteUser removes a tenant user and revokes their sessions.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if s == nil {
		return errors.New("identity: nil service")
	}
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return auth.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil || user.TenantID != tenantID {
		return identity.ErrNotFound
	}
	if err := s.sessions.DeleteByUser(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log(ctx, "user.delete", id, nil)
	return nil
}

func (s *Service) log(ctx context.Context, action, resourceID string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	var payload json.RawMessage
	if meta != nil {
		payload, _ = json.Marshal(meta)
	}
	_ = s.auditor.Log(ctx, audit.Entry{
		TenantID:     auth.TenantIDFromContext(ctx),
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       action,
		ResourceType: "user",
		ResourceID:   resourceID,
		Metadata:     payload,
		CreatedAt:    s.clock.Now().UTC(),
	})
}

func newID(prefix string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf)
}

func newInviteToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// hashToken digests a refresh or invite token for storage.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
