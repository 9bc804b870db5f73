// Package policy maps roles to the capabilities they grant.
package policy

import "github.com/good-yellow-bee/incidentdesk/internal/models"

// Capability is a named permission.
type Capability string

const (
	// CapabilityAdmin is full incident administration: deletes, tag and
	// template management.
	CapabilityAdmin Capability = "admin"
	// CapabilityEdit allows creating and changing incidents.
	CapabilityEdit Capability = "edit"
	// CapabilityView allows reading incidents.
	CapabilityView Capability = "view"
)

// AllCapabilities lists capabilities from broadest to narrowest.
func AllCapabilities() []Capability {
	return []Capability{CapabilityAdmin, CapabilityEdit, CapabilityView}
}

// IsAdminFull reports whether role has full administrative rights.
func IsAdminFull(role models.Role) bool {
	switch role {
	case models.RoleAdministrator, models.RoleIncidentManager:
		return true
	}
	return false
}

// CanEdit reports whether role may change incidents.
func CanEdit(role models.Role) bool {
	switch role {
	case models.RoleAdministrator, models.RoleIncidentManager, models.RoleDeveloper:
		return true
	}
	return false
}

// CanView reports whether role may read incidents.
func CanView(role models.Role) bool {
	switch role {
	case models.RoleAdministrator, models.RoleIncidentManager, models.RoleDeveloper, models.RoleViewer:
		return true
	}
	return false
}

// IsAdminFullName is IsAdminFull for an exact role name. Other spellings
// are denied.
func IsAdminFullName(name string) bool { return IsAdminFull(models.RoleFromName(name)) }

// CanEditName is CanEdit for a role name. Unknown names are denied.
func CanEditName(name string) bool { return CanEdit(models.RoleFromName(name)) }

// CanViewName is CanView for a role name. Unknown names are denied.
func CanViewName(name string) bool { return CanView(models.RoleFromName(name)) }

// Has reports whether role grants capability c.
func Has(role models.Role, c Capability) bool {
	switch c {
	case CapabilityAdmin:
		return IsAdminFull(role)
	case CapabilityEdit:
		return CanEdit(role)
	case CapabilityView:
		return CanView(role)
	}
	return false
}

// Capabilities returns every capability role grants, broadest first.
func Capabilities(role models.Role) []Capability {
	var caps []Capability
	for _, c := range AllCapabilities() {
		if Has(role, c) {
			caps = append(caps, c)
		}
	}
	return caps
}
