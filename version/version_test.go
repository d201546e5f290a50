package version

import (
	"runtime/debug"
	"testing"
)

func TestShortAndString(t *testing.T) {
	tests := []struct {
		name      string
		info      Info
		wantShort string
		wantFull  string
	}{
		{"bare", Info{Version: "dev"}, "dev", "dev"},
		{"commit", Info{Version: "1.0.0", Commit: "abc1234"}, "1.0.0-abc1234", "1.0.0-abc1234"},
		{"dirty", Info{Version: "1.0.0", Commit: "abc1234", Dirty: true}, "1.0.0-abc1234-dirty", "1.0.0-abc1234-dirty"},
		{"built", Info{Version: "1.0.0", BuildTime: "2024-01-15T10:30:00Z"}, "1.0.0", "1.0.0 (built 2024-01-15T10:30:00Z)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Short(); got != tc.wantShort {
				t.Errorf("Short() = %q, want %q", got, tc.wantShort)
			}
			if got := tc.info.String(); got != tc.wantFull {
				t.Errorf("String() = %q, want %q", got, tc.wantFull)
			}
		})
	}
}

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	var info Info
	fillFromBuildInfo(&info, bi)
	if info.Commit != "0123456" {
		t.Errorf("expected truncated commit, got %q", info.Commit)
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" || !info.Dirty || info.GoVersion != "go1.26.0" {
		t.Errorf("unexpected info %+v", info)
	}

	linked := Info{Commit: "fedcba9", BuildTime: "linked"}
	fillFromBuildInfo(&linked, bi)
	if linked.Commit != "fedcba9" || linked.BuildTime != "linked" {
		t.Errorf("link-time values should win, got %+v", linked)
	}
}

func TestGet(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "9.9.9"

	if got := Get().Version; got != "9.9.9" {
		t.Errorf("Get().Version = %q", got)
	}
	if got := UserAgent(); got != "rpcclient/9.9.9" {
		t.Errorf("UserAgent() = %q", got)
	}
}
