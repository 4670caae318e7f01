package application

import (
	"context"
	"testing"
	"time"

	"facility-cloud/internal/auth"
	identity "facility-cloud/internal/identity/domain"
	"facility-cloud/internal/identity/infrastructure/memory"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T, clock Clock) (*Service, *memory.UserRepository, *memory.SessionRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	service, err := NewService(users, sessions, TokenConfig{Secret: []byte("test-secret")}, WithClock(clock))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service, users, sessions
}

func seedUser(t *testing.T, users *memory.UserRepository, email, password, role, status string) *identity.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := identity.User{
		ID:           "user-" + email,
		TenantID:     "tenant-1",
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := users.Create(context.Background(), &user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return &user
}

func TestLoginIssuesBothTokens(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	service, users, sessions := newTestService(t, clock)
	seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleFacilityManager), identity.StatusActive)

	result, err := service.Login(context.Background(), "ops@example.com", "hunter22way", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	claims, err := auth.ParseToken(result.AccessToken, []byte("test-secret"), auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.TenantID != "tenant-1" {
		t.Fatalf("tenant = %q", claims.TenantID)
	}
	if claims.Role != string(auth.RoleFacilityManager) {
		t.Fatalf("role = %q", claims.Role)
	}
	if sessions.Count() != 1 {
		t.Fatalf("sessions = %d, want 1", sessions.Count())
	}
	if result.User.LastLoginAt.IsZero() {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, _ := newTestService(t, clock)
	seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleViewer), identity.StatusActive)

	if _, err := service.Login(context.Background(), "ops@example.com", "wrong-pass1", false); err != identity.ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.Login(context.Background(), "ghost@example.com", "hunter22way", false); err != identity.ErrInvalidCredentials {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, _ := newTestService(t, clock)
	seedUser(t, users, "gone@example.com", "hunter22way", string(auth.RoleViewer), identity.StatusInactive)

	if _, err := service.Login(context.Background(), "gone@example.com", "hunter22way", false); err != identity.ErrInactive {
		t.Fatalf("err = %v, want ErrInactive", err)
	}
}

func TestRefreshRotatesAccessToken(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, _ := newTestService(t, clock)
	seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleAdmin), identity.StatusActive)

	result, err := service.Login(context.Background(), "ops@example.com", "hunter22way", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	refreshed, err := service.Refresh(context.Background(), result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatal("expected a rotated token pair")
	}
	if _, err := service.Refresh(context.Background(), result.AccessToken); err == nil {
		t.Fatal("expected refresh with access token to fail")
	}
}

func TestRefreshConsumesPresentedToken(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, _ := newTestService(t, clock)
	seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleAdmin), identity.StatusActive)

	result, err := service.Login(context.Background(), "ops@example.com", "hunter22way", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	first, err := service.Refresh(context.Background(), result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := service.Refresh(context.Background(), result.RefreshToken); err == nil {
		t.Fatal("expected the consumed refresh token to be rejected")
	}
	if _, err := service.Refresh(context.Background(), first.RefreshToken); err != nil {
		t.Fatalf("rotated token refresh: %v", err)
	}
}

func TestRefreshRejectsTenantMismatch(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, _ := newTestService(t, clock)
	user := seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleAdmin), identity.StatusActive)

	result, err := service.Login(context.Background(), "ops@example.com", "hunter22way", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	moved := *user
	moved.TenantID = "tenant-2"
	if err := users.Update(context.Background(), &moved); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := service.Refresh(context.Background(), result.RefreshToken); err != auth.ErrTenantMismatch {
		t.Fatalf("err = %v, want ErrTenantMismatch", err)
	}
}

func TestSessionStoresTokenDigest(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, sessions := newTestService(t, clock)
	seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleAdmin), identity.StatusActive)

	result, err := service.Login(context.Background(), "ops@example.com", "hunter22way", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session, _ := sessions.GetByToken(context.Background(), result.RefreshToken); session != nil {
		t.Fatal("raw refresh token found in the session store")
	}
	if session, _ := sessions.GetByToken(context.Background(), hashToken(result.RefreshToken)); session == nil {
		t.Fatal("expected session keyed by token digest")
	}
}

func TestRefreshRejectsExpiredSession(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, sessions := newTestService(t, clock)
	seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleAdmin), identity.StatusActive)

	result, err := service.Login(context.Background(), "ops@example.com", "hunter22way", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	clock.Advance(8 * 24 * time.Hour)
	if _, err := service.Refresh(context.Background(), result.RefreshToken); err == nil {
		t.Fatal("expected expired session refresh to fail")
	}
	if sessions.Count() != 0 {
		t.Fatalf("sessions = %d, want 0 after expiry cleanup", sessions.Count())
	}
}

func TestLogoutRevokesSessions(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, sessions := newTestService(t, clock)
	user := seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleAdmin), identity.StatusActive)

	if _, err := service.Login(context.Background(), "ops@example.com", "hunter22way", true); err != nil {
		t.Fatalf("Login: %v", err)
	}
	ctx := auth.WithIdentity(context.Background(), "tenant-1", auth.RoleAdmin, user.ID)
	if err := service.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if sessions.Count() != 0 {
		t.Fatalf("sessions = %d, want 0", sessions.Count())
	}
}

func TestInviteAndAcceptFlow(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	service, _, _ := newTestService(t, clock)
	ctx := auth.WithIdentity(context.Background(), "tenant-1", auth.RoleAdmin, "user-admin")

	invited, err := service.Invite(ctx, "tech@example.com", "New Tech", string(auth.RoleTechnician))
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if invited.Status != identity.StatusPending {
		t.Fatalf("status = %q, want pending", invited.Status)
	}
	if invited.InviteToken == "" {
		t.Fatal("expected invite token")
	}

	accepted, err := service.AcceptInvite(context.Background(), invited.InviteToken, "valid1password")
	if err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if accepted.Status != identity.StatusActive {
		t.Fatalf("status = %q, want active", accepted.Status)
	}
	if accepted.InviteToken != "" {
		t.Fatal("expected invite token to be cleared")
	}

	if _, err := service.Login(context.Background(), "tech@example.com", "valid1password", false); err != nil {
		t.Fatalf("Login after accept: %v", err)
	}
}

func TestInviteTokenStoredAsDigest(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	service, users, _ := newTestService(t, clock)
	ctx := auth.WithIdentity(context.Background(), "tenant-1", auth.RoleAdmin, "user-admin")

	invited, err := service.Invite(ctx, "tech@example.com", "New Tech", string(auth.RoleTechnician))
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	stored, err := users.GetByID(context.Background(), invited.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: %v %v", stored, err)
	}
	if stored.InviteToken == invited.InviteToken {
		t.Fatal("raw invite token found in the user store")
	}
	if stored.InviteToken != hashToken(invited.InviteToken) {
		t.Fatal("stored invite token is not the digest of the issued one")
	}
}

func TestAcceptInviteRejectsWeakPassword(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, _, _ := newTestService(t, clock)
	ctx := auth.WithIdentity(context.Background(), "tenant-1", auth.RoleAdmin, "user-admin")

	invited, err := service.Invite(ctx, "tech@example.com", "New Tech", string(auth.RoleTechnician))
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if _, err := service.AcceptInvite(context.Background(), invited.InviteToken, "short1"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
	if _, err := service.AcceptInvite(context.Background(), invited.InviteToken, "nodigitshere"); err == nil {
		t.Fatal("expected password without digit to be rejected")
	}
}

func TestAcceptInviteRejectsExpiredToken(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	service, _, _ := newTestService(t, clock)
	ctx := auth.WithIdentity(context.Background(), "tenant-1", auth.RoleAdmin, "user-admin")

	invited, err := service.Invite(ctx, "tech@example.com", "New Tech", string(auth.RoleTechnician))
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	clock.Advance(8 * 24 * time.Hour)
	if _, err := service.AcceptInvite(context.Background(), invited.InviteToken, "valid1password"); err != identity.ErrInviteExpired {
		t.Fatalf("err = %v, want ErrInviteExpired", err)
	}
}

func TestInviteRejectsDuplicateEmail(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, _ := newTestService(t, clock)
	seedUser(t, users, "taken@example.com", "hunter22way", string(auth.RoleViewer), identity.StatusActive)
	ctx := auth.WithIdentity(context.Background(), "tenant-1", auth.RoleAdmin, "user-admin")

	if _, err := service.Invite(ctx, "taken@example.com", "Dup", string(auth.RoleViewer)); err != identity.ErrEmailTaken {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestDeactivationRevokesSessions(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, sessions := newTestService(t, clock)
	user := seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleTechnician), identity.StatusActive)

	if _, err := service.Login(context.Background(), "ops@example.com", "hunter22way", false); err != nil {
		t.Fatalf("Login: %v", err)
	}
	ctx := auth.WithIdentity(context.Background(), "tenant-1", auth.RoleAdmin, "user-admin")
	updated, err := service.UpdateUser(ctx, user.ID, "", "", identity.StatusInactive)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Status != identity.StatusInactive {
		t.Fatalf("status = %q", updated.Status)
	}
	if sessions.Count() != 0 {
		t.Fatalf("sessions = %d, want 0", sessions.Count())
	}
}

func TestUpdateUserScopedToTenant(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, _ := newTestService(t, clock)
	user := seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleViewer), identity.StatusActive)

	otherTenant := auth.WithIdentity(context.Background(), "tenant-2", auth.RoleAdmin, "user-elsewhere")
	if _, err := service.UpdateUser(otherTenant, user.ID, "Renamed", "", ""); err != identity.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound for cross-tenant update", err)
	}
}

func TestDeleteUserRemovesUserAndSessions(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	service, users, sessions := newTestService(t, clock)
	user := seedUser(t, users, "ops@example.com", "hunter22way", string(auth.RoleViewer), identity.StatusActive)

	if _, err := service.Login(context.Background(), "ops@example.com", "hunter22way", false); err != nil {
		t.Fatalf("Login: %v", err)
	}
	ctx := auth.WithIdentity(context.Background(), "tenant-1", auth.RoleAdmin, "user-admin")
	if err := service.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if got, err := users.GetByID(context.Background(), user.ID); err != nil || got != nil {
		t.Fatalf("expected user to be gone, got %v err %v", got, err)
	}
	if sessions.Count() != 0 {
		t.Fatalf("sessions = %d, want 0", sessions.Count())
	}
}
