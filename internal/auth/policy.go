package auth

import (
	"net/http"
	"strings"
)

// Policy resolves the capability a request requires. Paths not requiring a
// specific capability still require an authenticated caller unless exempt.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a policy with exemptions for public endpoints.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request skips auth entirely.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredCapability resolves the capability for the request. ok is false
// when the endpoint only requires an authenticated caller.
func (p Policy) RequiredCapability(r *http.Request) (Capability, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method
	mutating := method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions

	switch {
	case strings.HasPrefix(path, "/api/auth/"):
		return "", false
	case path == "/api/ws":
		return CapAlertRead, true
	case path == "/api/alerts":
		if mutating {
			return CapAlertCreate, true
		}
		return CapAlertRead, true
	case path == "/api/alerts/rules" || strings.HasPrefix(path, "/api/alerts/rules/"):
		if mutating {
			return CapRuleManage, true
		}
		return CapAlertRead, true
	case strings.HasPrefix(path, "/api/alerts/"):
		switch {
		case strings.HasSuffix(path, "/acknowledge"):
			return CapAlertAcknowledge, true
		case strings.HasSuffix(path, "/resolve"):
			return CapAlertResolve, true
		case strings.HasSuffix(path, "/close"):
			return CapAlertClose, true
		case strings.HasSuffix(path, "/create-work-order"):
			return CapWorkOrderCreate, true
		case mutating:
			return CapAlertCreate, true
		}
		return CapAlertRead, true
	case path == "/api/work-orders":
		if mutating {
			return CapWorkOrderCreate, true
		}
		return CapWorkOrderRead, true
	case strings.HasPrefix(path, "/api/work-orders/"):
		switch {
		case strings.HasSuffix(path, "/assign"):
			return CapWorkOrderAssign, true
		case mutating:
			return CapWorkOrderUpdate, true
		}
		return CapWorkOrderRead, true
	case strings.HasPrefix(path, "/api/users"):
		return CapUserManage, true
	case strings.HasPrefix(path, "/api/reports/"):
		if strings.HasSuffix(path, "/export") {
			return CapReportExport, true
		}
		return CapReportRead, true
	case strings.HasPrefix(path, "/api/portfolios"), strings.HasPrefix(path, "/api/sites"),
		strings.HasPrefix(path, "/api/systems"), strings.HasPrefix(path, "/api/assets"),
		strings.HasPrefix(path, "/api/sensors"), strings.HasPrefix(path, "/api/readings"):
		if mutating {
			return CapInventoryManage, true
		}
		return CapInventoryRead, true
	case path == "/api/dashboard/summary":
		return "", false
	}

	if strings.HasPrefix(path, "/api/") && mutating {
		return CapInventoryManage, true
	}
	return "", false
}
