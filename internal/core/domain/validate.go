package domain

import (
	"net"
	"regexp"
	"strings"
)

var (
	agentIDPattern   = regexp.MustCompile(`^\d{3,8}$`)
	agentNamePattern = regexp.MustCompile(`^[\w.\-]{1,128}$`)
	versionPattern   = regexp.MustCompile(`^v?\d+\.\d+\.\d+$`)
)

// ValidateAgentID checks the format of an agent ID ("001", "1024", ...).
func ValidateAgentID(id string) error {
	if id == "" {
		return Validationf("agent ID required")
	}
	if !agentIDPattern.MatchString(id) {
		return Validationf("invalid agent ID %q: expected 3-8 digits", id)
	}
	return nil
}

// ValidateActionTarget checks an agent ID that an action (restart, remove,
// upgrade) will be applied to. The manager's own entry is refused.
func ValidateActionTarget(id string) error {
	if err := ValidateAgentID(id); err != nil {
		return err
	}
	if id == ManagerAgentID {
		return Validationf("agent %s is the manager and cannot be targeted", id)
	}
	return nil
}

// ValidateAddAgent checks the fields of an agent registration.
func ValidateAddAgent(req AddAgentRequest) error {
	if req.Name == "" {
		return Validationf("agent name required")
	}
	if !agentNamePattern.MatchString(req.Name) {
		return Validationf("invalid agent name %q: use letters, digits, '_', '-' or '.' (max 128)", req.Name)
	}
	if req.IP == "" || strings.EqualFold(req.IP, "any") {
		return nil
	}
	if net.ParseIP(req.IP) != nil {
		return nil
	}
	if _, _, err := net.ParseCIDR(req.IP); err == nil {
		return nil
	}
	return Validationf("invalid agent IP %q: expected an address, a CIDR or \"any\"", req.IP)
}

// ValidateVersion checks an upgrade target version ("4.7.2" or "v4.7.2").
// An empty version means "latest" and is accepted.
func ValidateVersion(v string) error {
	if v == "" {
		return nil
	}
	if !versionPattern.MatchString(v) {
		return Validationf("invalid version %q: expected MAJOR.MINOR.PATCH", v)
	}
	return nil
}

// ValidateFilter checks an agent listing filter.
func ValidateFilter(f AgentFilter) error {
	if f.Status != "" && !f.Status.Valid() {
		return Validationf("invalid status %q: expected one of active, disconnected, never_connected, pending", f.Status)
	}
	if f.Limit < 0 || f.Limit > 100000 {
		return Validationf("invalid limit %d: expected 1-100000", f.Limit)
	}
	if f.Offset < 0 {
		return Validationf("invalid offset %d", f.Offset)
	}
	return nil
}

// NormalizeVersion strips the optional "v" prefix; the upgrade endpoint
// takes a bare MAJOR.MINOR.PATCH.
func NormalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}
