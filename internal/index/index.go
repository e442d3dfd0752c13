// Package index merges root and dependency definitions into lookup maps used
// by reference resolution.
package index

import (
	_ "embed"
	"sort"
	"strings"
	"sync"

	"github.com/ansible/ansible-risk-insight-sub000/internal/errors"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

//go:embed builtin_modules.txt
var builtinModulesText string

// Index is the lookup structure over one scan's definitions
type Index struct {
	mu sync.RWMutex

	root     *model.Definitions
	ext      *model.Definitions
	builtins *model.ObjectList

	modules   map[string]*model.Module   // fqcn -> module
	roles     map[string]*model.Role     // fqcn -> role
	taskfiles map[string]*model.TaskFile // key -> taskfile
	playbooks map[string]*model.Playbook // key -> playbook
	redirects map[string]string          // short or collection-qualified name -> fqcn

	moduleNames []string // sorted, rebuilt lazily
	roleNames   []string
}

// Build validates and indexes the root and external definitions. Objects of
// ext override root objects with the same name or key.
func Build(root, ext *model.Definitions) (*Index, error) {
	if root == nil {
		root = model.NewDefinitions()
	}
	if ext == nil {
		ext = model.NewDefinitions()
	}

	problems := &errors.IndexErrorList{}
	validate(root, problems)
	validate(ext, problems)
	if problems.HasErrors() {
		return nil, problems
	}

	idx := &Index{
		root:      root,
		ext:       ext,
		builtins:  builtinModules(),
		modules:   make(map[string]*model.Module),
		roles:     make(map[string]*model.Role),
		taskfiles: make(map[string]*model.TaskFile),
		playbooks: make(map[string]*model.Playbook),
		redirects: make(map[string]string),
	}

	// Builtins first so that real definitions win on collision
	for _, o := range idx.builtins.Items() {
		idx.insert(o)
	}
	for _, defs := range []*model.Definitions{root, ext} {
		for _, l := range defs.Lists() {
			for _, o := range l.Items() {
				idx.insert(o)
			}
		}
	}

	return idx, nil
}

// validate checks every object key of a bundle
func validate(defs *model.Definitions, problems *errors.IndexErrorList) {
	for _, l := range defs.Lists() {
		for _, o := range l.Items() {
			t := o.ObjectType()
			key := o.ObjectKey()
			switch {
			case key == "":
				problems.Add(string(t), key, "missing key")
				continue
			case model.DetectType(key) != t:
				problems.Add(string(t), key, "key does not start with its object type")
				continue
			}
			switch obj := o.(type) {
			case *model.Module:
				if obj.FQCN == "" {
					problems.Add(string(t), key, "missing fqcn")
				}
			case *model.Role:
				if obj.FQCN == "" {
					problems.Add(string(t), key, "missing fqcn")
				}
			}
		}
	}

	mappings := [][]model.Mapping{defs.Mappings.Playbooks, defs.Mappings.Roles, defs.Mappings.Taskfiles, defs.Mappings.Modules}
	for _, group := range mappings {
		for _, m := range group {
			if model.DetectType(m.Key) == "" {
				problems.Add("mapping", m.Key, "entry point key has no known object type")
			}
		}
	}
}

// insert adds an object to the name maps. Callers hold the write lock or own
// the index exclusively.
func (idx *Index) insert(o model.Object) {
	switch obj := o.(type) {
	case *model.Module:
		idx.modules[obj.FQCN] = obj
		idx.moduleNames = nil
	case *model.Role:
		idx.roles[obj.FQCN] = obj
		idx.roleNames = nil
	case *model.TaskFile:
		idx.taskfiles[obj.Key] = obj
	case *model.Playbook:
		idx.playbooks[obj.Key] = obj
	case *model.Collection:
		for name, target := range parseRedirects(obj) {
			idx.redirects[name] = target
		}
	}
}

// AddExternal merges objects supplied at runtime (e.g. by the knowledge
// store) into the external definitions
func (idx *Index) AddExternal(objs ...model.Object) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, o := range objs {
		if o == nil || o.ObjectKey() == "" {
			continue
		}
		idx.ext.Add(o)
		idx.insert(o)
	}
}

// Get returns the object with the given key. Lookups follow the merge order
// of the name maps: external definitions win over root ones, and builtin
// modules come last.
func (idx *Index) Get(key string) (model.Object, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if o, ok := idx.ext.Get(key); ok {
		return o, true
	}
	if o, ok := idx.root.Get(key); ok {
		return o, true
	}
	if model.DetectType(key) == model.TypeModule {
		return idx.builtins.FindByKey(key)
	}
	return nil, false
}

// Module looks up a module by fqcn
func (idx *Index) Module(fqcn string) (*model.Module, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	m, ok := idx.modules[fqcn]
	return m, ok
}

// Role looks up a role by fqcn
func (idx *Index) Role(fqcn string) (*model.Role, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	r, ok := idx.roles[fqcn]
	return r, ok
}

// TaskFile looks up a task file by key
func (idx *Index) TaskFile(key string) (*model.TaskFile, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tf, ok := idx.taskfiles[key]
	return tf, ok
}

// Playbook looks up a playbook by key
func (idx *Index) Playbook(key string) (*model.Playbook, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pb, ok := idx.playbooks[key]
	return pb, ok
}

// Redirect returns the fqcn a module name is routed to
func (idx *Index) Redirect(name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	target, ok := idx.redirects[name]
	return target, ok
}

// ModuleNames returns every module fqcn in lexicographic order
func (idx *Index) ModuleNames() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.moduleNames == nil {
		idx.moduleNames = sortedKeys(idx.modules)
	}
	return idx.moduleNames
}

// RoleNames returns every role fqcn in lexicographic order
func (idx *Index) RoleNames() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.roleNames == nil {
		idx.roleNames = sortedKeys(idx.roles)
	}
	return idx.roleNames
}

// Root returns the root definitions
func (idx *Index) Root() *model.Definitions {
	return idx.root
}

// Ext returns the external definitions, including objects added at runtime
func (idx *Index) Ext() *model.Definitions {
	return idx.ext
}

// Mappings returns the entry point table of the root definitions
func (idx *Index) Mappings() model.Mappings {
	return idx.root.Mappings
}

// Counts returns the number of indexed modules, roles, task files and playbooks
func (idx *Index) Counts() (modules, roles, taskfiles, playbooks int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.modules), len(idx.roles), len(idx.taskfiles), len(idx.playbooks)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuiltinModuleNames returns the short names of the builtin modules
func BuiltinModuleNames() []string {
	var names []string
	for _, line := range strings.Split(builtinModulesText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}

func builtinModules() *model.ObjectList {
	l := model.NewObjectList()
	for _, name := range BuiltinModuleNames() {
		l.Add(&model.Module{
			Name:       name,
			FQCN:       model.BuiltinCollection + "." + name,
			Key:        model.BuiltinModuleKey(name),
			LocalKey:   "module module:__builtin__",
			Collection: model.BuiltinCollection,
			Builtin:    true,
		})
	}
	return l
}
