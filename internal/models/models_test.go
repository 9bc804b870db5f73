package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"Administrator", RoleAdministrator},
		{"administrator", RoleAdministrator},
		{"admin", RoleAdministrator},
		{"Incident Manager", RoleIncidentManager},
		{"incident_manager", RoleIncidentManager},
		{"incident-manager", RoleIncidentManager},
		{" Developer ", RoleDeveloper},
		{"VIEWER", RoleViewer},
		{"", RoleUnknown},
		{"root", RoleUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseRole(tt.in); got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoleFromName(t *testing.T) {
	for _, r := range AllRoles() {
		if got := RoleFromName(r.String()); got != r {
			t.Errorf("RoleFromName(%q) = %v", r.String(), got)
		}
	}
	for _, name := range []string{"admin", "ADMINISTRATOR", "incident_manager", " Viewer", "Unknown", ""} {
		if got := RoleFromName(name); got != RoleUnknown {
			t.Errorf("RoleFromName(%q) = %v, want Unknown", name, got)
		}
	}
}

func TestRoleIDs(t *testing.T) {
	for _, r := range AllRoles() {
		if RoleFromID(r.ID()) != r {
			t.Errorf("%s: id %d does not round-trip", r, r.ID())
		}
	}
	if RoleFromID(0) != RoleUnknown || RoleFromID(5) != RoleUnknown {
		t.Error("out-of-range ids should map to RoleUnknown")
	}
	if RoleUnknown.ID() != 0 {
		t.Error("RoleUnknown should have id 0")
	}
}

func TestRoleJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleIncidentManager})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"role":"Incident Manager"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var decoded struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal([]byte(`{"role":"developer"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Role != RoleDeveloper {
		t.Errorf("decoded role = %v", decoded.Role)
	}
}

func TestUser_IsActive(t *testing.T) {
	u := NewUser("jane", "", "", RoleViewer)
	if !u.IsActive() {
		t.Error("new user should be active")
	}
	u.SetActive(false)
	if u.IsActive() {
		t.Error("deactivated user should not be active")
	}
	u.Active = nil
	if u.IsActive() {
		t.Error("unset active flag should count as inactive")
	}
}

func TestUser_DisplayName(t *testing.T) {
	u := NewUser("jane", "", "", RoleViewer)
	if u.DisplayName() != "jane" {
		t.Errorf("DisplayName = %q", u.DisplayName())
	}
	u.FullName = "Jane Doe"
	if u.DisplayName() != "Jane Doe" {
		t.Errorf("DisplayName = %q", u.DisplayName())
	}
}

func TestSeverityRank(t *testing.T) {
	want := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
	for i, s := range want {
		if s.Rank() != i {
			t.Errorf("%s rank = %d, want %d", s, s.Rank(), i)
		}
	}
	if Severity("Catastrophic").Rank() != 4 {
		t.Error("unknown severity should rank last")
	}
	if Severity("").Valid() {
		t.Error("empty severity should be invalid")
	}
}

func TestStatusRankAndGroups(t *testing.T) {
	tests := []struct {
		status  Status
		rank    int
		settled bool
		active  bool
	}{
		{StatusOpen, 0, false, true},
		{StatusInvestigating, 1, false, true},
		{StatusResolved, 2, true, false},
		{StatusClosed, 3, true, false},
		{Status("Paused"), 4, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if tt.status.Rank() != tt.rank {
				t.Errorf("rank = %d, want %d", tt.status.Rank(), tt.rank)
			}
			if tt.status.IsSettled() != tt.settled {
				t.Errorf("IsSettled = %v", tt.status.IsSettled())
			}
			if tt.status.IsActive() != tt.active {
				t.Errorf("IsActive = %v", tt.status.IsActive())
			}
		})
	}
}

func TestParseEnums(t *testing.T) {
	if s, ok := ParseSeverity("critical"); !ok || s != SeverityCritical {
		t.Errorf("ParseSeverity = %v, %v", s, ok)
	}
	if _, ok := ParseSeverity("severe"); ok {
		t.Error("unknown severity should not parse")
	}
	if s, ok := ParseStatus("investigating"); !ok || s != StatusInvestigating {
		t.Errorf("ParseStatus = %v, %v", s, ok)
	}
	if s, ok := ParseActionStatus("in_progress"); !ok || s != ActionInProgress {
		t.Errorf("ParseActionStatus = %v, %v", s, ok)
	}
	if p, ok := ParsePriority("HIGH"); !ok || p != PriorityHigh {
		t.Errorf("ParsePriority = %v, %v", p, ok)
	}
}

func TestStoredSession_IsExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &StoredSession{ExpiresAt: now.Add(time.Minute)}
	if s.IsExpired(now) {
		t.Error("session should not be expired yet")
	}
	if !s.IsExpired(now.Add(time.Minute)) {
		t.Error("session should be expired at its expiry instant")
	}
}
