package model

// Load target types of a definitions bundle
const (
	TargetCollection = "collection"
	TargetRole       = "role"
	TargetPlaybook   = "playbook"
	TargetTaskFile   = "taskfile"
	TargetProject    = "project"
)

// Mapping binds a source path to the key assigned to the object loaded from it
type Mapping struct {
	Path string `yaml:"path" json:"path"`
	Key  string `yaml:"key" json:"key"`
}

// Mappings is the table of entry points of a definitions bundle
type Mappings struct {
	TargetType string    `yaml:"target_type" json:"target_type"`
	TargetName string    `yaml:"target_name" json:"target_name"`
	Playbooks  []Mapping `yaml:"playbooks,omitempty" json:"playbooks,omitempty"`
	Roles      []Mapping `yaml:"roles,omitempty" json:"roles,omitempty"`
	Taskfiles  []Mapping `yaml:"taskfiles,omitempty" json:"taskfiles,omitempty"`
	Modules    []Mapping `yaml:"modules,omitempty" json:"modules,omitempty"`
}

// Definitions is a bundle of loaded objects, one list per object kind
type Definitions struct {
	Mappings     Mappings
	Collections  *ObjectList
	Roles        *ObjectList
	TaskFiles    *ObjectList
	Modules      *ObjectList
	Playbooks    *ObjectList
	Plays        *ObjectList
	Tasks        *ObjectList
	Repositories *ObjectList
}

// NewDefinitions creates an empty bundle
func NewDefinitions() *Definitions {
	return &Definitions{
		Collections:  NewObjectList(),
		Roles:        NewObjectList(),
		TaskFiles:    NewObjectList(),
		Modules:      NewObjectList(),
		Playbooks:    NewObjectList(),
		Plays:        NewObjectList(),
		Tasks:        NewObjectList(),
		Repositories: NewObjectList(),
	}
}

// ListFor returns the list holding objects of type t. Role references live
// inside their play and have no list of their own.
func (d *Definitions) ListFor(t ObjectType) *ObjectList {
	switch t {
	case TypeCollection:
		return d.Collections
	case TypeRole:
		return d.Roles
	case TypeTaskFile:
		return d.TaskFiles
	case TypeModule:
		return d.Modules
	case TypePlaybook:
		return d.Playbooks
	case TypePlay:
		return d.Plays
	case TypeTask:
		return d.Tasks
	case TypeRepository:
		return d.Repositories
	}
	return nil
}

// Add routes objects to the list of their type
func (d *Definitions) Add(objs ...Object) {
	for _, o := range objs {
		if l := d.ListFor(o.ObjectType()); l != nil {
			l.Add(o)
		}
	}
}

// Merge appends every object of other. Mappings are not merged.
func (d *Definitions) Merge(other *Definitions) {
	if other == nil {
		return
	}
	for _, l := range other.Lists() {
		for _, o := range l.Items() {
			d.Add(o)
		}
	}
}

// Lists returns every object list in a fixed order
func (d *Definitions) Lists() []*ObjectList {
	return []*ObjectList{
		d.Collections,
		d.Roles,
		d.TaskFiles,
		d.Modules,
		d.Playbooks,
		d.Plays,
		d.Tasks,
		d.Repositories,
	}
}

// Get finds an object by key in the list matching the key's type
func (d *Definitions) Get(key string) (Object, bool) {
	if d == nil {
		return nil, false
	}
	l := d.ListFor(DetectType(key))
	if l == nil {
		return nil, false
	}
	return l.FindByKey(key)
}

// Count returns the total number of objects in the bundle
func (d *Definitions) Count() int {
	n := 0
	for _, l := range d.Lists() {
		n += l.Len()
	}
	return n
}
