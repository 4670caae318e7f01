package auth

import (
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("unit-test-secret")

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, TokenTypeAccess, "user-1", "tenant-1", RoleFacilityManager, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := ParseToken(token, testSecret, TokenTypeAccess)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.TenantID != "tenant-1" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Role != string(RoleFacilityManager) {
		t.Fatalf("role = %s", claims.Role)
	}
}

func TestParseTokenRejectsWrongType(t *testing.T) {
	token, err := IssueToken(testSecret, TokenTypeRefresh, "user-1", "tenant-1", RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken(token, testSecret, TokenTypeAccess); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _ := IssueToken(testSecret, TokenTypeAccess, "user-1", "tenant-1", RoleAdmin, time.Minute)
	if _, err := ParseToken(token, []byte("other-secret"), TokenTypeAccess); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, _ := IssueToken(testSecret, TokenTypeAccess, "user-1", "tenant-1", RoleAdmin, -time.Minute)
	if _, err := ParseToken(token, testSecret, TokenTypeAccess); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	token, _ := IssueToken(testSecret, TokenTypeAccess, "user-1", "tenant-1", RoleViewer, time.Minute)
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := ParseToken(tampered, testSecret, TokenTypeAccess); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestIssueTokenValidatesInput(t *testing.T) {
	if _, err := IssueToken(nil, TokenTypeAccess, "user-1", "tenant-1", RoleAdmin, time.Minute); err == nil {
		t.Fatal("empty secret accepted")
	}
	if _, err := IssueToken(testSecret, "session", "user-1", "tenant-1", RoleAdmin, time.Minute); err == nil {
		t.Fatal("unknown token type accepted")
	}
	if _, err := IssueToken(testSecret, TokenTypeAccess, "", "tenant-1", RoleAdmin, time.Minute); err == nil {
		t.Fatal("empty subject accepted")
	}
}
