package app

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ansible/ansible-risk-insight-sub000/internal/definitions"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// writeProject saves a one task playbook project into a definitions directory
func writeProject(t *testing.T, module string) string {
	t.Helper()
	dir := t.TempDir()

	pbKey := model.PlaybookKey("site.yml", "", "")
	playKey := model.PlayKey(pbKey, 0)
	taskKey := model.TaskKey(playKey, 0)

	defs := model.NewDefinitions()
	defs.Mappings = model.Mappings{
		TargetType: model.TargetProject,
		TargetName: "site",
		Playbooks:  []model.Mapping{{Path: "site.yml", Key: pbKey}},
	}
	defs.Add(
		&model.Playbook{Name: "site.yml", Key: pbKey, DefinedIn: "site.yml", Plays: []string{playKey}},
		&model.Play{Name: "all", Key: playKey, Tasks: []string{taskKey}},
		&model.Task{Name: "run", Key: taskKey, Module: module, Executable: module, ExecutableType: model.ExecModule},
	)
	if err := definitions.Save(filepath.Join(dir, definitions.RootFile), defs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return dir
}

// writeCollection saves a collection shipping one module
func writeCollection(t *testing.T, name, module string) string {
	t.Helper()
	dir := t.TempDir()

	fqcn := name + "." + module
	defs := model.NewDefinitions()
	defs.Mappings = model.Mappings{TargetType: model.TargetCollection, TargetName: name}
	defs.Add(&model.Module{Name: module, FQCN: fqcn, Collection: name, Key: model.ModuleKey(fqcn, name, "")})
	if err := definitions.Save(filepath.Join(dir, definitions.RootFile), defs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := NewApp("test", "unknown", "unknown")
	var out bytes.Buffer
	a.rootCmd.SetOut(&out)
	a.rootCmd.SetErr(&bytes.Buffer{})
	a.rootCmd.SetArgs(args)
	err := a.Execute()
	return out.String(), err
}

func TestScanCommandJSON(t *testing.T) {
	dir := writeProject(t, "debug")
	cfg := filepath.Join(t.TempDir(), "config.yml")

	out, err := run(t, "scan", dir, "--no-store", "--json", "--tree", "--config", cfg)
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}

	var reports []struct {
		Dir     string `json:"dir"`
		Summary struct {
			Trees int `json:"trees"`
			Tasks int `json:"tasks"`
		} `json:"summary"`
		Trees []json.RawMessage `json:"trees"`
	}
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(reports) != 1 || reports[0].Dir != dir {
		t.Fatalf("reports = %+v, want one for %s", reports, dir)
	}
	if reports[0].Summary.Trees != 1 || reports[0].Summary.Tasks != 1 || len(reports[0].Trees) != 1 {
		t.Errorf("report = %+v, want one tree with one task", reports[0])
	}
}

func TestScanCommandMissingDir(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yml")
	out, err := run(t, "scan", filepath.Join(t.TempDir(), "nothing"), "--no-store", "--config", cfg)
	if err == nil {
		t.Fatal("scan error = nil, want a failure")
	}
	if !strings.Contains(out, "❌") {
		t.Errorf("scan output = %q, want a failure line", out)
	}
}

func TestRAMRegisterThenScan(t *testing.T) {
	tmp := t.TempDir()
	cfg := filepath.Join(tmp, "config.yml")
	store := filepath.Join(tmp, "ram.db")

	collection := writeCollection(t, "acme.tools", "thing")
	out, err := run(t, "ram", "register", collection, "--version", "1.0.0", "--store", store, "--config", cfg)
	if err != nil {
		t.Fatalf("ram register error = %v", err)
	}
	if !strings.Contains(out, "Registered collection acme.tools 1.0.0") {
		t.Errorf("ram register output = %q", out)
	}

	out, err = run(t, "ram", "search", "module", "acme.tools.thing", "--store", store, "--config", cfg)
	if err != nil {
		t.Fatalf("ram search error = %v", err)
	}
	if !strings.Contains(out, "acme.tools.thing") || !strings.Contains(out, "1.0.0") {
		t.Errorf("ram search output = %q", out)
	}

	project := writeProject(t, "acme.tools.thing")
	out, err = run(t, "scan", project, "--store", store, "--config", cfg)
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	if !strings.Contains(out, "Resolved from knowledge store: 1") || strings.Contains(out, "Unresolved") {
		t.Errorf("scan output = %q, want the module resolved from the store", out)
	}
}

func TestRAMSearchUnknownKind(t *testing.T) {
	tmp := t.TempDir()
	_, err := run(t, "ram", "search", "playbook", "x", "--store", filepath.Join(tmp, "ram.db"), "--config", filepath.Join(tmp, "config.yml"))
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Errorf("ram search error = %v, want unknown kind", err)
	}
}

func TestInvalidJobsFlag(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yml")
	_, err := run(t, "scan", t.TempDir(), "--jobs", "-2", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "parallelJobs") {
		t.Errorf("scan error = %v, want a parallelJobs config error", err)
	}
}
