package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ansible/ansible-risk-insight-sub000/internal/definitions"
	"github.com/ansible/ansible-risk-insight-sub000/internal/knowledge"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

const playbookKey = "playbook playbook:site.yml"

var playKey = model.PlayKey(playbookKey, 0)

func moduleTask(index int, module string, options any) *model.Task {
	return &model.Task{
		Name:           module,
		Key:            model.TaskKey(playKey, index),
		Index:          index,
		Module:         module,
		Executable:     module,
		ExecutableType: model.ExecModule,
		ModuleOptions:  options,
	}
}

// siteDefinitions is a one play project: the play binds pkg, a set_fact task
// binds port for the tasks after it and group_vars/all supplies region
func siteDefinitions() *model.Definitions {
	defs := model.NewDefinitions()
	defs.Mappings = model.Mappings{
		TargetType: model.TargetProject,
		TargetName: "site",
		Playbooks:  []model.Mapping{{Path: "site.yml", Key: playbookKey}},
	}

	setFact := moduleTask(1, "set_fact", map[string]any{"port": 8080})
	setFact.SetFacts = map[string]any{"port": 8080}
	badLoop := moduleTask(3, "debug", map[string]any{"msg": "{{ item }}"})
	badLoop.Loop = map[string]any{"item": 5}

	defs.Add(
		&model.Repository{
			Name:      "site",
			Key:       model.RepositoryKey("site"),
			Playbooks: []string{playbookKey},
			Inventories: []model.Inventory{{
				Type:      "group_vars",
				Name:      "all",
				Variables: map[string]any{"region": "eu"},
			}},
		},
		&model.Playbook{Name: "site.yml", Key: playbookKey, DefinedIn: "site.yml", Plays: []string{playKey}},
		&model.Play{
			Name:      "web",
			Key:       playKey,
			Variables: map[string]any{"pkg": "nginx"},
			Tasks: []string{
				model.TaskKey(playKey, 0),
				model.TaskKey(playKey, 1),
				model.TaskKey(playKey, 2),
				model.TaskKey(playKey, 3),
				model.TaskKey(playKey, 4),
			},
		},
		moduleTask(0, "apt", map[string]any{"name": "{{ pkg }}", "state": "present"}),
		setFact,
		moduleTask(2, "template", map[string]any{"dest": "/etc/{{ region }}/{{ port }}.conf"}),
		badLoop,
		moduleTask(4, "acme.tools.thing", nil),
	)
	return defs
}

func scan(t *testing.T, store knowledge.Store) *Result {
	t.Helper()
	e := NewEngineWithOptions(WithOutput(&bytes.Buffer{}), WithStore(store))
	result, err := e.Scan(context.Background(), siteDefinitions(), nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.Trees) != 1 {
		t.Fatalf("len(Trees) = %d, want 1", len(result.Trees))
	}
	return result
}

func TestScanAnnotatesTasks(t *testing.T) {
	result := scan(t, nil)
	tasks := result.Trees[0].TaskCalls()
	if len(tasks) != 5 {
		t.Fatalf("len(TaskCalls()) = %d, want 5", len(tasks))
	}

	tests := []struct {
		name        string
		call        *model.CallObject
		wantOptions []any
		wantMutable map[string][]string
	}{
		{
			name:        "play vars",
			call:        tasks[0],
			wantOptions: []any{map[string]any{"name": "nginx", "state": "present"}},
			wantMutable: map[string][]string{"name": {"pkg"}},
		},
		{
			name:        "set_fact of an earlier sibling and inventory",
			call:        tasks[2],
			wantOptions: []any{map[string]any{"dest": "/etc/eu/8080.conf"}},
			wantMutable: map[string][]string{"dest": {"port", "region"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann := tt.call.Annotation
			if ann == nil {
				t.Fatalf("%s has no annotation", tt.call.Key)
			}
			if diff := cmp.Diff(tt.wantOptions, ann.ResolvedOptions); diff != "" {
				t.Errorf("ResolvedOptions mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantMutable, ann.MutableVars); diff != "" {
				t.Errorf("MutableVars mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := tasks[3].Annotation; got == nil || got.Error == "" {
		t.Errorf("loop task annotation = %+v, want an error", got)
	}
	if len(result.LoopErrors) != 1 || result.LoopErrors[0].TaskKey != tasks[3].SpecKey {
		t.Errorf("LoopErrors = %+v, want one for %s", result.LoopErrors, tasks[3].SpecKey)
	}
}

func TestScanScopesVariablesToTheirPlay(t *testing.T) {
	playA := model.PlayKey(playbookKey, 0)
	playB := model.PlayKey(playbookKey, 1)
	task := func(play string, index int, vars map[string]any) *model.Task {
		return &model.Task{
			Name:           "apt",
			Key:            model.TaskKey(play, index),
			Index:          index,
			Module:         "apt",
			Executable:     "apt",
			ExecutableType: model.ExecModule,
			ModuleOptions:  map[string]any{"name": "{{ pkg }}"},
			Variables:      vars,
		}
	}

	defs := model.NewDefinitions()
	defs.Mappings = model.Mappings{
		TargetType: model.TargetProject,
		TargetName: "site",
		Playbooks:  []model.Mapping{{Path: "site.yml", Key: playbookKey}},
	}
	defs.Add(
		&model.Playbook{Name: "site.yml", Key: playbookKey, DefinedIn: "site.yml", Plays: []string{playA, playB}},
		&model.Play{Name: "a", Key: playA, Tasks: []string{model.TaskKey(playA, 0), model.TaskKey(playA, 1)}},
		task(playA, 0, map[string]any{"pkg": "play1-task-only"}),
		task(playA, 1, nil),
		&model.Play{Name: "b", Key: playB, Variables: map[string]any{"pkg": "nginx"}, Tasks: []string{model.TaskKey(playB, 0)}},
		task(playB, 0, nil),
	)

	e := NewEngineWithOptions(WithOutput(&bytes.Buffer{}))
	result, err := e.Scan(context.Background(), defs, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.Trees) != 1 {
		t.Fatalf("len(Trees) = %d, want 1", len(result.Trees))
	}
	tasks := result.Trees[0].TaskCalls()
	if len(tasks) != 3 {
		t.Fatalf("len(TaskCalls()) = %d, want 3", len(tasks))
	}

	want := []string{"play1-task-only", "{{ pkg }}", "nginx"}
	for i, call := range tasks {
		got := call.Annotation.ResolvedOptions
		if diff := cmp.Diff([]any{map[string]any{"name": want[i]}}, got); diff != "" {
			t.Errorf("task %d ResolvedOptions mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestScanSummary(t *testing.T) {
	s := scan(t, nil).Summary()

	want := Summary{
		Trees:        1,
		Calls:        11, // playbook, play, 5 tasks, 4 resolved modules
		Tasks:        5,
		Failures:     model.Failures{"module": {"acme.tools.thing": 1}},
		MutableTasks: 2,
		LoopErrors:   1,
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}

	var out bytes.Buffer
	if err := s.WriteText(&out); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	for _, line := range []string{"Trees: 1, calls: 11, tasks: 5", "Loops not expanded: 1", "module acme.tools.thing (1)"} {
		if !strings.Contains(out.String(), line) {
			t.Errorf("WriteText() output missing %q:\n%s", line, out.String())
		}
	}
}

func TestScanWithStore(t *testing.T) {
	store := knowledge.NewMemoryStore()
	err := store.Register(&knowledge.Findings{
		Metadata: model.Provenance{Type: model.TargetCollection, Name: "acme.tools", Version: "1.2.0"},
		Root: &definitions.Bundle{
			Mappings: model.Mappings{TargetType: model.TargetCollection, TargetName: "acme.tools"},
			Modules: []*model.Module{{
				Name: "thing", FQCN: "acme.tools.thing", Collection: "acme.tools",
				Key: model.ModuleKey("acme.tools.thing", "acme.tools", ""),
			}},
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result := scan(t, store)
	tr := result.Trees[0]
	if total := tr.Telemetry.Failures.Total(); total != 0 {
		t.Errorf("Failures.Total() = %d, want 0", total)
	}
	if len(tr.Telemetry.ExtraRequirements) != 1 {
		t.Fatalf("ExtraRequirements = %+v, want one", tr.Telemetry.ExtraRequirements)
	}
	req := tr.Telemetry.ExtraRequirements[0]
	if req.Name != "acme.tools.thing" || req.DefinedIn.Version != "1.2.0" {
		t.Errorf("ExtraRequirements[0] = %+v, want acme.tools.thing from 1.2.0", req)
	}

	last := tr.TaskCalls()[4]
	if len(last.PossibleCandidates) != 1 || last.PossibleCandidates[0].Name != "acme.tools.thing" {
		t.Errorf("PossibleCandidates = %+v, want acme.tools.thing", last.PossibleCandidates)
	}
}

func TestResultFindings(t *testing.T) {
	result := scan(t, nil)
	meta := model.Provenance{Type: model.TargetProject, Name: "site", Version: "0.1.0"}

	f := result.Findings(meta)
	if err := f.Validate(); err != nil {
		t.Fatalf("Findings().Validate() error = %v", err)
	}
	if got := f.ResolveFailures.Count("module", "acme.tools.thing"); got != 1 {
		t.Errorf("ResolveFailures[module][acme.tools.thing] = %d, want 1", got)
	}
	if f.Ext != nil {
		t.Errorf("Ext = %v, want nil for a scan without dependencies", f.Ext)
	}
	if len(f.Root.Playbooks) != 1 || f.Root.Playbooks[0].Key != playbookKey {
		t.Errorf("Root.Playbooks = %+v, want %s", f.Root.Playbooks, playbookKey)
	}

	store := knowledge.NewMemoryStore()
	if err := store.Register(f); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestInventories(t *testing.T) {
	defs := siteDefinitions()
	if got := Inventories(defs, playbookKey); len(got) != 1 || got[0].Name != "all" {
		t.Errorf("Inventories(%s) = %+v, want the all group", playbookKey, got)
	}
	if got := Inventories(defs, "playbook playbook:other.yml"); got != nil {
		t.Errorf("Inventories(other) = %+v, want nil", got)
	}
	if got := Inventories(nil, playbookKey); got != nil {
		t.Errorf("Inventories(nil) = %+v, want nil", got)
	}
}

func TestScanRejectsInvalidDefinitions(t *testing.T) {
	defs := model.NewDefinitions()
	defs.Add(&model.Playbook{Name: "broken", Key: "not a key"})

	e := NewEngine(&bytes.Buffer{})
	if _, err := e.Scan(context.Background(), defs, nil); err == nil {
		t.Error("Scan() error = nil, want an index error")
	}
}
