package auth

import "strings"

// Role identifies what a user is allowed to do within their tenant.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleFacilityManager Role = "facility_manager"
	RoleTechnician      Role = "technician"
	RoleExecutive       Role = "executive"
	RoleViewer          Role = "viewer"
)

// Capability names one permission checked against the role table.
type Capability string

const (
	CapAlertRead        Capability = "alert.read"
	CapAlertCreate      Capability = "alert.create"
	CapAlertAcknowledge Capability = "alert.acknowledge"
	CapAlertResolve     Capability = "alert.resolve"
	CapAlertClose       Capability = "alert.close"
	CapRuleManage       Capability = "rule.manage"
	CapWorkOrderRead    Capability = "workorder.read"
	CapWorkOrderCreate  Capability = "workorder.create"
	CapWorkOrderAssign  Capability = "workorder.assign"
	CapWorkOrderUpdate  Capability = "workorder.update"
	CapWorkOrderClose   Capability = "workorder.close"
	CapInventoryRead    Capability = "inventory.read"
	CapInventoryManage  Capability = "inventory.manage"
	CapUserManage       Capability = "user.manage"
	CapReportRead       Capability = "report.read"
	CapReportExport     Capability = "report.export"
)

// roleCapabilities is the static permission table. Roles are not ranked;
// each role carries exactly the capabilities listed here.
var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleAdmin: capSet(
		CapAlertRead, CapAlertCreate, CapAlertAcknowledge, CapAlertResolve, CapAlertClose,
		CapRuleManage,
		CapWorkOrderRead, CapWorkOrderCreate, CapWorkOrderAssign, CapWorkOrderUpdate, CapWorkOrderClose,
		CapInventoryRead, CapInventoryManage,
		CapUserManage,
		CapReportRead, CapReportExport,
	),
	RoleFacilityManager: capSet(
		CapAlertRead, CapAlertCreate, CapAlertAcknowledge, CapAlertResolve, CapAlertClose,
		CapRuleManage,
		CapWorkOrderRead, CapWorkOrderCreate, CapWorkOrderAssign, CapWorkOrderUpdate, CapWorkOrderClose,
		CapInventoryRead, CapInventoryManage,
		CapReportRead, CapReportExport,
	),
	RoleTechnician: capSet(
		CapAlertRead, CapAlertAcknowledge,
		CapWorkOrderRead, CapWorkOrderUpdate,
		CapInventoryRead,
		CapReportRead,
	),
	RoleExecutive: capSet(
		CapAlertRead,
		CapWorkOrderRead,
		CapInventoryRead,
		CapReportRead, CapReportExport,
	),
	RoleViewer: capSet(
		CapAlertRead,
		CapWorkOrderRead,
		CapInventoryRead,
		CapReportRead,
	),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// NormalizeRole parses a role string. ok is false for unknown roles.
func NormalizeRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, known := roleCapabilities[role]; !known {
		return "", false
	}
	return role, true
}

// Allowed reports whether the role carries the capability.
func Allowed(role Role, capability Capability) bool {
	caps, known := roleCapabilities[role]
	if !known {
		return false
	}
	_, granted := caps[capability]
	return granted
}

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleFacilityManager, RoleTechnician, RoleExecutive, RoleViewer}
}
