package models

import (
	"strings"
	"time"
)

// Role is the closed set of permission levels. Values match the seeded
// role ids in the roles table.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdministrator
	RoleIncidentManager
	RoleDeveloper
	RoleViewer
)

var roleNames = map[Role]string{
	RoleAdministrator:   "Administrator",
	RoleIncidentManager: "Incident Manager",
	RoleDeveloper:       "Developer",
	RoleViewer:          "Viewer",
}

// AllRoles lists the assignable roles in id order.
func AllRoles() []Role {
	return []Role{RoleAdministrator, RoleIncidentManager, RoleDeveloper, RoleViewer}
}

// String returns the display name stored in roles.name.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ID returns the roles.id value, or 0 for RoleUnknown.
func (r Role) ID() int64 {
	if !r.Valid() {
		return 0
	}
	return int64(r)
}

// RoleFromID maps a roles.id value to a Role.
func RoleFromID(id int64) Role {
	r := Role(id)
	if !r.Valid() {
		return RoleUnknown
	}
	return r
}

// RoleFromName maps an exact display name such as "Incident Manager" to a
// Role. Any other spelling is RoleUnknown.
func RoleFromName(name string) Role {
	for r, n := range roleNames {
		if n == name {
			return r
		}
	}
	return RoleUnknown
}

// ParseRole converts user input to a Role. Matching ignores case and accepts
// "_" or "-" in place of spaces, so "incident_manager" and
// "Incident Manager" are the same role. Anything else is RoleUnknown.
func ParseRole(s string) Role {
	key := normalizeRoleName(s)
	for r, name := range roleNames {
		if normalizeRoleName(name) == key {
			return r
		}
	}
	if key == "admin" {
		return RoleAdministrator
	}
	return RoleUnknown
}

func normalizeRoleName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ReplaceAll(s, "-", " ")
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// RoleInfo is a row of the roles reference table.
type RoleInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// User represents an account that can sign in.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	Role         Role      `json:"role"`
	Active       *bool     `json:"active"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates an active User with initialized timestamps.
func NewUser(username, email, fullName string, role Role) *User {
	now := time.Now().UTC()
	active := true
	return &User{
		Username:  username,
		Email:     email,
		FullName:  fullName,
		Role:      role,
		Active:    &active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive reports whether the active flag is explicitly set to true.
// An unset flag counts as inactive.
func (u *User) IsActive() bool {
	return u.Active != nil && *u.Active
}

// SetActive sets the active flag.
func (u *User) SetActive(active bool) {
	u.Active = &active
}

// DisplayName returns the full name, falling back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
