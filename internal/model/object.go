// Package model holds the definition objects of analyzed Ansible content and
// the call objects built on top of them.
package model

// ObjectType identifies the variant of a definition object. It is also the
// first word of every object key.
type ObjectType string

// Object types
const (
	TypeModule     ObjectType = "module"
	TypeCollection ObjectType = "collection"
	TypeRole       ObjectType = "role"
	TypeRoleInPlay ObjectType = "roleinplay"
	TypeTaskFile   ObjectType = "taskfile"
	TypeTask       ObjectType = "task"
	TypePlay       ObjectType = "play"
	TypePlaybook   ObjectType = "playbook"
	TypeRepository ObjectType = "repository"
)

// ObjectTypes lists every object type in a fixed order
var ObjectTypes = []ObjectType{
	TypeModule,
	TypeCollection,
	TypeRole,
	TypeRoleInPlay,
	TypeTaskFile,
	TypeTask,
	TypePlay,
	TypePlaybook,
	TypeRepository,
}

// Valid reports whether t is one of the known object types
func (t ObjectType) Valid() bool {
	for _, known := range ObjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Object is a loaded definition. The set of implementations is closed: only
// the nine types of this package satisfy it.
type Object interface {
	ObjectType() ObjectType
	ObjectKey() string
	isObject()
}

// ExecutableType tells what a task invokes
type ExecutableType string

// Executable types
const (
	ExecModule   ExecutableType = "Module"
	ExecRole     ExecutableType = "Role"
	ExecTaskFile ExecutableType = "TaskFile"
)

// BecomeInfo holds privilege escalation settings of a play or task
type BecomeInfo struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Become  string `yaml:"become,omitempty" json:"become,omitempty"`
	User    string `yaml:"user,omitempty" json:"user,omitempty"`
	Method  string `yaml:"method,omitempty" json:"method,omitempty"`
	Flags   string `yaml:"flags,omitempty" json:"flags,omitempty"`
}

// Module is an Ansible module, either builtin or shipped by a collection/role
type Module struct {
	Name       string `yaml:"name" json:"name"`
	FQCN       string `yaml:"fqcn" json:"fqcn"`
	Key        string `yaml:"key" json:"key"`
	LocalKey   string `yaml:"local_key,omitempty" json:"local_key,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
	Role       string `yaml:"role,omitempty" json:"role,omitempty"`
	DefinedIn  string `yaml:"defined_in,omitempty" json:"defined_in,omitempty"`
	Builtin    bool   `yaml:"builtin,omitempty" json:"builtin,omitempty"`
}

// Collection is an Ansible collection
type Collection struct {
	Name      string         `yaml:"name" json:"name"`
	Key       string         `yaml:"key" json:"key"`
	LocalKey  string         `yaml:"local_key,omitempty" json:"local_key,omitempty"`
	Path      string         `yaml:"path,omitempty" json:"path,omitempty"`
	Version   string         `yaml:"version,omitempty" json:"version,omitempty"`
	Playbooks []string       `yaml:"playbooks,omitempty" json:"playbooks,omitempty"`
	Taskfiles []string       `yaml:"taskfiles,omitempty" json:"taskfiles,omitempty"`
	Roles     []string       `yaml:"roles,omitempty" json:"roles,omitempty"`
	Modules   []string       `yaml:"modules,omitempty" json:"modules,omitempty"`
	Variables map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
	// MetaRuntime is the decoded meta/runtime.yml of the collection
	MetaRuntime map[string]any `yaml:"meta_runtime,omitempty" json:"meta_runtime,omitempty"`
}

// Role is an Ansible role
type Role struct {
	Name             string         `yaml:"name" json:"name"`
	FQCN             string         `yaml:"fqcn" json:"fqcn"`
	Key              string         `yaml:"key" json:"key"`
	LocalKey         string         `yaml:"local_key,omitempty" json:"local_key,omitempty"`
	Collection       string         `yaml:"collection,omitempty" json:"collection,omitempty"`
	DefinedIn        string         `yaml:"defined_in,omitempty" json:"defined_in,omitempty"`
	Playbooks        []string       `yaml:"playbooks,omitempty" json:"playbooks,omitempty"`
	Taskfiles        []string       `yaml:"taskfiles,omitempty" json:"taskfiles,omitempty"`
	Handlers         []string       `yaml:"handlers,omitempty" json:"handlers,omitempty"`
	Modules          []string       `yaml:"modules,omitempty" json:"modules,omitempty"`
	Dependencies     []string       `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	DefaultVariables map[string]any `yaml:"default_variables,omitempty" json:"default_variables,omitempty"`
	Variables        map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// RoleInPlay is a role reference listed in the roles section of a play
type RoleInPlay struct {
	Name              string         `yaml:"name" json:"name"`
	Key               string         `yaml:"key,omitempty" json:"key,omitempty"`
	Options           map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
	DefinedIn         string         `yaml:"defined_in,omitempty" json:"defined_in,omitempty"`
	RoleIndex         int            `yaml:"role_index" json:"role_index"`
	PlayIndex         int            `yaml:"play_index" json:"play_index"`
	Role              string         `yaml:"role,omitempty" json:"role,omitempty"`
	Collection        string         `yaml:"collection,omitempty" json:"collection,omitempty"`
	CollectionsInPlay []string       `yaml:"collections_in_play,omitempty" json:"collections_in_play,omitempty"`
}

// TasksFrom returns the tasks_from option of the role reference, if any
func (r *RoleInPlay) TasksFrom() string {
	if v, ok := r.Options["tasks_from"].(string); ok {
		return v
	}
	return ""
}

// TaskFile is a file containing a list of tasks
type TaskFile struct {
	Name       string         `yaml:"name" json:"name"`
	Key        string         `yaml:"key" json:"key"`
	LocalKey   string         `yaml:"local_key,omitempty" json:"local_key,omitempty"`
	DefinedIn  string         `yaml:"defined_in" json:"defined_in"`
	Role       string         `yaml:"role,omitempty" json:"role,omitempty"`
	Collection string         `yaml:"collection,omitempty" json:"collection,omitempty"`
	Tasks      []string       `yaml:"tasks,omitempty" json:"tasks,omitempty"`
	Variables  map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// Task is a single task of a play or task file
type Task struct {
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	Key        string `yaml:"key" json:"key"`
	LocalKey   string `yaml:"local_key,omitempty" json:"local_key,omitempty"`
	DefinedIn  string `yaml:"defined_in,omitempty" json:"defined_in,omitempty"`
	Index      int    `yaml:"index" json:"index"`
	PlayIndex  int    `yaml:"play_index,omitempty" json:"play_index,omitempty"`
	Role       string `yaml:"role,omitempty" json:"role,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	// Module is the module name as written in the task
	Module         string         `yaml:"module,omitempty" json:"module,omitempty"`
	Executable     string         `yaml:"executable,omitempty" json:"executable,omitempty"`
	ExecutableType ExecutableType `yaml:"executable_type,omitempty" json:"executable_type,omitempty"`
	// ModuleOptions is either a map of options or the legacy inline string form
	ModuleOptions any            `yaml:"module_options,omitempty" json:"module_options,omitempty"`
	Options       map[string]any `yaml:"options,omitempty" json:"options,omitempty"`

	Variables           map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
	RegisteredVariables map[string]any `yaml:"registered_variables,omitempty" json:"registered_variables,omitempty"`
	SetFacts            map[string]any `yaml:"set_facts,omitempty" json:"set_facts,omitempty"`
	// Loop maps the loop variable name to the loop source
	Loop              map[string]any `yaml:"loop,omitempty" json:"loop,omitempty"`
	Become            *BecomeInfo    `yaml:"become,omitempty" json:"become,omitempty"`
	ModuleDefaults    map[string]any `yaml:"module_defaults,omitempty" json:"module_defaults,omitempty"`
	CollectionsInPlay []string       `yaml:"collections_in_play,omitempty" json:"collections_in_play,omitempty"`
}

// TasksFrom returns the tasks_from module option of include_role/import_role
func (t *Task) TasksFrom() string {
	opts, ok := t.ModuleOptions.(map[string]any)
	if !ok {
		return ""
	}
	if v, ok := opts["tasks_from"].(string); ok {
		return v
	}
	return ""
}

// Play is a play of a playbook
type Play struct {
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	Key        string `yaml:"key" json:"key"`
	LocalKey   string `yaml:"local_key,omitempty" json:"local_key,omitempty"`
	DefinedIn  string `yaml:"defined_in,omitempty" json:"defined_in,omitempty"`
	Index      int    `yaml:"index" json:"index"`
	Role       string `yaml:"role,omitempty" json:"role,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	ImportModule   string `yaml:"import_module,omitempty" json:"import_module,omitempty"`
	ImportPlaybook string `yaml:"import_playbook,omitempty" json:"import_playbook,omitempty"`

	PreTasks  []string     `yaml:"pre_tasks,omitempty" json:"pre_tasks,omitempty"`
	Tasks     []string     `yaml:"tasks,omitempty" json:"tasks,omitempty"`
	PostTasks []string     `yaml:"post_tasks,omitempty" json:"post_tasks,omitempty"`
	Handlers  []string     `yaml:"handlers,omitempty" json:"handlers,omitempty"`
	Roles     []RoleInPlay `yaml:"roles,omitempty" json:"roles,omitempty"`

	Options           map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
	Variables         map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
	Become            *BecomeInfo    `yaml:"become,omitempty" json:"become,omitempty"`
	ModuleDefaults    map[string]any `yaml:"module_defaults,omitempty" json:"module_defaults,omitempty"`
	CollectionsInPlay []string       `yaml:"collections_in_play,omitempty" json:"collections_in_play,omitempty"`
}

// Playbook is a playbook file
type Playbook struct {
	Name       string         `yaml:"name" json:"name"`
	Key        string         `yaml:"key" json:"key"`
	LocalKey   string         `yaml:"local_key,omitempty" json:"local_key,omitempty"`
	DefinedIn  string         `yaml:"defined_in" json:"defined_in"`
	Role       string         `yaml:"role,omitempty" json:"role,omitempty"`
	Collection string         `yaml:"collection,omitempty" json:"collection,omitempty"`
	Plays      []string       `yaml:"plays,omitempty" json:"plays,omitempty"`
	Variables  map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// Repository is a scanned project root
type Repository struct {
	Name        string      `yaml:"name" json:"name"`
	Key         string      `yaml:"key" json:"key"`
	Path        string      `yaml:"path,omitempty" json:"path,omitempty"`
	Playbooks   []string    `yaml:"playbooks,omitempty" json:"playbooks,omitempty"`
	Roles       []string    `yaml:"roles,omitempty" json:"roles,omitempty"`
	Taskfiles   []string    `yaml:"taskfiles,omitempty" json:"taskfiles,omitempty"`
	Modules     []string    `yaml:"modules,omitempty" json:"modules,omitempty"`
	Inventories []Inventory `yaml:"inventories,omitempty" json:"inventories,omitempty"`
}

// Owns reports whether the repository lists the given playbook or role key
func (r *Repository) Owns(key string) bool {
	for _, k := range r.Playbooks {
		if k == key {
			return true
		}
	}
	for _, k := range r.Roles {
		if k == key {
			return true
		}
	}
	for _, k := range r.Taskfiles {
		if k == key {
			return true
		}
	}
	return false
}

// Inventory is a variable bundle from group_vars or host_vars
type Inventory struct {
	// Type is "group_vars" or "host_vars"
	Type      string         `yaml:"type" json:"type"`
	Name      string         `yaml:"name" json:"name"`
	DefinedIn string         `yaml:"defined_in,omitempty" json:"defined_in,omitempty"`
	Variables map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
}

func (*Module) ObjectType() ObjectType     { return TypeModule }
func (*Collection) ObjectType() ObjectType { return TypeCollection }
func (*Role) ObjectType() ObjectType       { return TypeRole }
func (*RoleInPlay) ObjectType() ObjectType { return TypeRoleInPlay }
func (*TaskFile) ObjectType() ObjectType   { return TypeTaskFile }
func (*Task) ObjectType() ObjectType       { return TypeTask }
func (*Play) ObjectType() ObjectType       { return TypePlay }
func (*Playbook) ObjectType() ObjectType   { return TypePlaybook }
func (*Repository) ObjectType() ObjectType { return TypeRepository }

func (o *Module) ObjectKey() string     { return o.Key }
func (o *Collection) ObjectKey() string { return o.Key }
func (o *Role) ObjectKey() string       { return o.Key }
func (o *RoleInPlay) ObjectKey() string { return o.Key }
func (o *TaskFile) ObjectKey() string   { return o.Key }
func (o *Task) ObjectKey() string       { return o.Key }
func (o *Play) ObjectKey() string       { return o.Key }
func (o *Playbook) ObjectKey() string   { return o.Key }
func (o *Repository) ObjectKey() string { return o.Key }

func (*Module) isObject()     {}
func (*Collection) isObject() {}
func (*Role) isObject()       {}
func (*RoleInPlay) isObject() {}
func (*TaskFile) isObject()   {}
func (*Task) isObject()       {}
func (*Play) isObject()       {}
func (*Playbook) isObject()   {}
func (*Repository) isObject() {}
