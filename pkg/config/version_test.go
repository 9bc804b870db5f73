package config

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo("deskctl")
	if info.Program != "deskctl" || info.Version != Version || info.GoVersion != runtime.Version() {
		t.Errorf("info = %+v", info)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{Program: "incidentdesk-server", Version: "v1.2.0", Commit: "abc123", BuildTime: "2026-01-02", GoVersion: "go1.24.7", Platform: "linux/amd64"}
	want := "incidentdesk-server v1.2.0 (commit abc123, built 2026-01-02, go1.24.7 linux/amd64)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(GetBuildInfo("deskctl").String(), "deskctl "+Version) {
		t.Error("String() should lead with program and version")
	}
}
