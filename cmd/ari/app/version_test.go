package app

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildInfoWriteDetails(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		want    []string
		notWant []string
	}{
		{
			name: "release build",
			info: BuildInfo{Version: "1.2.0", Commit: "0123456789ab", Date: "2026-01-02", GoVersion: "go1.25.1", Platform: "linux/amd64", Builtins: 70},
			want: []string{"Version 1.2.0\n", "commit: 0123456789ab\n", "built: 2026-01-02\n", "go: go1.25.1 linux/amd64\n", "builtin modules: 70\n"},
		},
		{
			name:    "dirty tree",
			info:    BuildInfo{Version: "dev", Commit: "0123456789ab", Date: unknownBuild, Modified: true},
			want:    []string{"commit: 0123456789ab (modified)\n"},
			notWant: []string{"built:"},
		},
		{
			name:    "unknown stamps",
			info:    BuildInfo{Version: "dev", Commit: unknownBuild, Date: unknownBuild},
			notWant: []string{"commit:", "built:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			tt.info.WriteDetails(&out)
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("WriteDetails() = %q, want it to contain %q", out.String(), w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out.String(), w) {
					t.Errorf("WriteDetails() = %q, want no %q", out.String(), w)
				}
			}
		})
	}
}

func TestNewBuildInfoKeepsLinkerValues(t *testing.T) {
	info := NewBuildInfo("1.0.0", "abc", "2026-03-04")
	if info.Version != "1.0.0" || info.Commit != "abc" || info.Date != "2026-03-04" {
		t.Errorf("NewBuildInfo() = %+v, want the linker values kept", info)
	}
	if info.Builtins == 0 {
		t.Error("NewBuildInfo().Builtins = 0, want the builtin module table size")
	}
}

func TestVersionCommandShort(t *testing.T) {
	out, err := run(t, "version", "--short", "--config", filepath.Join(t.TempDir(), "config.yml"))
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "Version test\n") {
		t.Errorf("version --short output = %q", out)
	}
}
