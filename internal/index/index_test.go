package index

import (
	"testing"

	"github.com/ansible/ansible-risk-insight-sub000/internal/errors"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

func module(fqcn, collection string) *model.Module {
	return &model.Module{
		Name:       fqcn[len(collection)+1:],
		FQCN:       fqcn,
		Key:        model.ModuleKey(fqcn, collection, ""),
		Collection: collection,
	}
}

func TestBuild_BuiltinModules(t *testing.T) {
	idx, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	m, ok := idx.Module("ansible.builtin.copy")
	if !ok {
		t.Fatal("Module(ansible.builtin.copy) not found")
	}
	if !m.Builtin || m.Key != model.BuiltinModuleKey("copy") {
		t.Errorf("builtin module = %+v", m)
	}
	if _, ok := idx.Get(model.BuiltinModuleKey("shell")); !ok {
		t.Error("Get(builtin shell key) not found")
	}
	if len(BuiltinModuleNames()) < 50 {
		t.Errorf("BuiltinModuleNames() returned %d names", len(BuiltinModuleNames()))
	}
}

func TestBuild_ExtOverridesRoot(t *testing.T) {
	root := model.NewDefinitions()
	rootRole := &model.Role{Name: "web", FQCN: "ns.coll.web", Key: model.RoleKey("ns.coll.web", "ns.coll"), DefinedIn: "root"}
	root.Add(rootRole)

	ext := model.NewDefinitions()
	extRole := &model.Role{Name: "web", FQCN: "ns.coll.web", Key: rootRole.Key, DefinedIn: "ext"}
	ext.Add(extRole)

	idx, err := Build(root, ext)
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	if r, _ := idx.Role("ns.coll.web"); r != extRole {
		t.Errorf("Role() = %v, want the external role (last write wins)", r)
	}
	if o, _ := idx.Get(rootRole.Key); o != model.Object(extRole) {
		t.Errorf("Get() = %v, want the external role", o)
	}

	r, _ := idx.Role("ns.coll.web")
	if o, _ := idx.Get(r.Key); o != model.Object(r) {
		t.Errorf("Get(Role().Key) = %v, want the role found by name %v", o, r)
	}
}

func TestBuild_MalformedKeys(t *testing.T) {
	tests := []struct {
		name string
		obj  model.Object
	}{
		{"missing key", &model.Task{Name: "x"}},
		{"wrong type word", &model.Task{Key: "play playbook:a.yml#play:[0]"}},
		{"module without fqcn", &model.Module{Key: "module module:x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := model.NewDefinitions()
			defs.Add(tt.obj)

			_, err := Build(defs, nil)
			if err == nil {
				t.Fatal("Build() error = nil, want error")
			}
			list, ok := err.(*errors.IndexErrorList)
			if !ok || len(list.Errors) != 1 {
				t.Errorf("Build() error = %#v, want one IndexError", err)
			}
		})
	}
}

func TestBuild_MalformedMapping(t *testing.T) {
	defs := model.NewDefinitions()
	defs.Mappings.Playbooks = []model.Mapping{{Path: "site.yml", Key: "site.yml"}}

	if _, err := Build(defs, nil); err == nil {
		t.Error("Build() error = nil, want error for mapping key without type")
	}
}

func TestBuild_Redirects(t *testing.T) {
	root := model.NewDefinitions()
	root.Add(&model.Collection{
		Name: "community.general",
		Key:  model.CollectionKey("community.general"),
		MetaRuntime: map[string]any{
			"plugin_routing": map[string]any{
				"modules": map[string]any{
					"old_name": map[string]any{"redirect": "community.general.new_name"},
					"no_route": map[string]any{"deprecation": map[string]any{"removal_version": "9.0.0"}},
				},
			},
		},
	})

	idx, err := Build(root, nil)
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	for _, name := range []string{"old_name", "community.general.old_name"} {
		if got, ok := idx.Redirect(name); !ok || got != "community.general.new_name" {
			t.Errorf("Redirect(%q) = %q, %v", name, got, ok)
		}
	}
	if _, ok := idx.Redirect("no_route"); ok {
		t.Error("Redirect(no_route) should not exist")
	}
}

func TestParseRuntime(t *testing.T) {
	data := []byte(`
plugin_routing:
  modules:
    docker_container:
      redirect: community.docker.docker_container
`)
	got, err := ParseRuntime("community.general", data)
	if err != nil {
		t.Fatalf("ParseRuntime() error = %v, want nil", err)
	}
	if got["community.general.docker_container"] != "community.docker.docker_container" {
		t.Errorf("ParseRuntime() = %v", got)
	}

	if _, err := ParseRuntime("x", []byte("plugin_routing: [")); err == nil {
		t.Error("ParseRuntime() error = nil, want error for invalid YAML")
	}
}

func TestAddExternal(t *testing.T) {
	idx, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	m := module("ns.coll.thing", "ns.coll")
	before := len(idx.ModuleNames())
	idx.AddExternal(m)

	if got, ok := idx.Module("ns.coll.thing"); !ok || got != m {
		t.Errorf("Module() after AddExternal = %v, %v", got, ok)
	}
	if len(idx.ModuleNames()) != before+1 {
		t.Errorf("ModuleNames() length = %d, want %d", len(idx.ModuleNames()), before+1)
	}
	if _, ok := idx.Ext().Get(m.Key); !ok {
		t.Error("external definitions should hold the added module")
	}
}
