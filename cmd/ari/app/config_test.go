package app

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ansible/ansible-risk-insight-sub000/internal/errors"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := &WorkspaceConfig{
		KnowledgeStore: DefaultKnowledgeStore,
		RetentionDays:  DefaultRetentionDays,
		ParallelJobs:   runtime.NumCPU(),
		LRUSize:        256,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "knowledgeStore: /var/lib/ari/ram.db\nparallelJobs: 2\nverbose: true\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := &WorkspaceConfig{
		KnowledgeStore: "/var/lib/ari/ram.db",
		RetentionDays:  DefaultRetentionDays,
		ParallelJobs:   2,
		LRUSize:        256,
		Verbose:        true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
	}{
		{"negative jobs", "parallelJobs: -1\n", "parallelJobs"},
		{"negative retention", "retentionDays: -30\n", "retentionDays"},
		{"negative lru", "lruSize: -5\n", "lruSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := LoadConfig(path)
			var cfgErr *errors.ConfigError
			if !stderrors.As(err, &cfgErr) {
				t.Fatalf("LoadConfig() error = %v, want a ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("parallelJobs: [not, a, number]\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() error = nil, want a parse error")
	}
}

func TestInitializeConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ari", "config.yml")

	var out bytes.Buffer
	if err := InitializeConfig(path, &out); err != nil {
		t.Fatalf("InitializeConfig() error = %v", err)
	}
	if !strings.Contains(out.String(), "Created") {
		t.Errorf("InitializeConfig() output = %q", out.String())
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("written config mismatch (-want +got):\n%s", diff)
	}

	if err := InitializeConfig(path, &out); err == nil {
		t.Error("second InitializeConfig() error = nil, want already exists")
	}
}
