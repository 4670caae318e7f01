package auth

import "testing"

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role       Role
		capability Capability
		want       bool
	}{
		{RoleAdmin, CapUserManage, true},
		{RoleAdmin, CapWorkOrderClose, true},
		{RoleFacilityManager, CapUserManage, false},
		{RoleFacilityManager, CapRuleManage, true},
		{RoleFacilityManager, CapWorkOrderAssign, true},
		{RoleTechnician, CapWorkOrderUpdate, true},
		{RoleTechnician, CapWorkOrderAssign, false},
		{RoleTechnician, CapAlertAcknowledge, true},
		{RoleTechnician, CapAlertResolve, false},
		{RoleTechnician, CapRuleManage, false},
		{RoleExecutive, CapReportExport, true},
		{RoleExecutive, CapWorkOrderCreate, false},
		{RoleViewer, CapAlertRead, true},
		{RoleViewer, CapReportExport, false},
		{RoleViewer, CapAlertAcknowledge, false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.role, tc.capability); got != tc.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tc.role, tc.capability, got, tc.want)
		}
	}
}

func TestAllowedUnknownRole(t *testing.T) {
	if Allowed(Role("ghost"), CapAlertRead) {
		t.Fatal("unknown role granted a capability")
	}
}

func TestNormalizeRole(t *testing.T) {
	role, ok := NormalizeRole("facility_manager")
	if !ok || role != RoleFacilityManager {
		t.Fatalf("NormalizeRole = %v, %v", role, ok)
	}
	if _, ok := NormalizeRole("superuser"); ok {
		t.Fatal("unknown role normalized")
	}
}

func TestPasswordRules(t *testing.T) {
	if err := ValidatePassword("secret1x"); err != nil {
		t.Fatalf("valid password rejected: %v", err)
	}
	for _, password := range []string{"short1", "lettersonly", "12345678"} {
		if err := ValidatePassword(password); err == nil {
			t.Errorf("password %q accepted", password)
		}
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1x")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("secret1x", hash) {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword("wrong1xx", hash) {
		t.Fatal("wrong password accepted")
	}
}
