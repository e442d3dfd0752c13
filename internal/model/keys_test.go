package model

import "testing"

func TestKeyBuilders(t *testing.T) {
	taskfile := TaskFileKey("roles/web/tasks/main.yml", "", "web")
	playbook := PlaybookKey("site.yml", "", "")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"builtin module", BuiltinModuleKey("copy"), "module collection:ansible.builtin#module:ansible.builtin.copy"},
		{"collection module", ModuleKey("ns.coll.thing", "ns.coll", ""), "module collection:ns.coll#module:ns.coll.thing"},
		{"collection role", RoleKey("ns.coll.web", "ns.coll"), "role collection:ns.coll#role:ns.coll.web"},
		{"standalone role", RoleKey("web", ""), "role role:web"},
		{"role taskfile", taskfile, "taskfile role:web#taskfile:roles/web/tasks/main.yml"},
		{"task in taskfile", TaskKey(taskfile, 2), "task role:web#taskfile:roles/web/tasks/main.yml#task:[2]"},
		{"playbook", playbook, "playbook playbook:site.yml"},
		{"play", PlayKey(playbook, 0), "play playbook:site.yml#play:[0]"},
		{"task in play", TaskKey(PlayKey(playbook, 0), 1), "task playbook:site.yml#play:[0]#task:[1]"},
		{"collection", CollectionKey("NS.Coll"), "collection collection:ns.coll"},
		{"repository", RepositoryKey("repo"), "repository repository:repo"},
		{"lowercased path", TaskFileKey("Tasks/Main.yml", "", ""), "taskfile taskfile:tasks/main.yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("key = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		key  string
		want ObjectType
	}{
		{"task playbook:site.yml#play:[0]#task:[1]", TypeTask},
		{"module collection:ansible.builtin#module:ansible.builtin.copy", TypeModule},
		{"widget widget:x", ""},
		{"", ""},
		{"nospace", ""},
	}

	for _, tt := range tests {
		if got := DetectType(tt.key); got != tt.want {
			t.Errorf("DetectType(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestDefinitionSite(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		wantPrefix string
		wantPath   string
		wantOK     bool
	}{
		{
			name:       "task in role taskfile",
			key:        "task role:web#taskfile:roles/web/tasks/main.yml#task:[0]",
			wantPrefix: "role:web#",
			wantPath:   "roles/web/tasks/main.yml",
			wantOK:     true,
		},
		{
			name:     "task in play",
			key:      "task playbook:site.yml#play:[0]#task:[1]",
			wantPath: "site.yml",
			wantOK:   true,
		},
		{
			name:       "collection playbook play",
			key:        "play collection:ns.c#playbook:playbooks/a.yml#play:[0]",
			wantPrefix: "collection:ns.c#",
			wantPath:   "playbooks/a.yml",
			wantOK:     true,
		},
		{
			name: "role key has no file",
			key:  "role role:web",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix, path, ok := DefinitionSite(tt.key)
			if ok != tt.wantOK || prefix != tt.wantPrefix || path != tt.wantPath {
				t.Errorf("DefinitionSite() = (%q, %q, %v), want (%q, %q, %v)", prefix, path, ok, tt.wantPrefix, tt.wantPath, tt.wantOK)
			}
		})
	}
}

func TestKeyName(t *testing.T) {
	if got := KeyName(BuiltinModuleKey("copy")); got != "ansible.builtin.copy" {
		t.Errorf("KeyName() = %q, want %q", got, "ansible.builtin.copy")
	}
	if got := KeyName(TaskFileKey("roles/web/tasks/main.yml", "", "web")); got != "roles/web/tasks/main.yml" {
		t.Errorf("KeyName() = %q, want %q", got, "roles/web/tasks/main.yml")
	}
}
