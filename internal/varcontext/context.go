// Package varcontext accumulates the variables defined along a call sequence
// and resolves variable references and module options against them.
package varcontext

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ansible/ansible-risk-insight-sub000/internal/interpolation"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

//go:embed ansible_variables.txt
var specialVariablesText string

var specialVariables = sync.OnceValue(func() map[string]struct{} {
	names := make(map[string]struct{})
	for _, line := range strings.Split(specialVariablesText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names[line] = struct{}{}
	}
	return names
})

// IsSpecialVariable reports whether name (or the variable it indexes into)
// is an Ansible magic variable, connection variable or fact
func IsSpecialVariable(name string) bool {
	base := name
	if i := strings.IndexAny(base, ".["); i >= 0 {
		base = base[:i]
	}
	_, ok := specialVariables()[base]
	return ok
}

// ChainNode is one object added to the context
type ChainNode struct {
	Key   string
	Depth int
	Obj   model.Object

	scope int
}

// hostScope marks bindings that outlive the node that set them
const hostScope = 0

// liveBinding is a binding together with the chain node whose unwinding
// drops it
type liveBinding struct {
	v     model.Variable
	scope int
}

// Resolution is the outcome of resolving one variable name
type Resolution struct {
	Value   any
	Type    model.VariableType
	History model.ResolveHistory
}

// Found reports whether the variable resolved to a value
func (r Resolution) Found() bool {
	return r.Value != nil
}

// Context holds the variables visible at a point of a call sequence. Of
// the bindings still in scope, the winner of every name is the one with the
// highest precedence; a later binding of equal precedence replaces an
// earlier one.
//
// A binding goes out of scope when the chain node that set it is unwound.
// Role variables live until the enclosing play is unwound. Registered
// variables and facts live for the whole sequence.
type Context struct {
	extractor *interpolation.Extractor

	// Variables is the live nested variable map
	Variables map[string]any
	bindings  map[string]model.Variable
	flat      map[string]model.Variable
	live      map[string][]liveBinding
	lastScope int

	Options     map[string]any
	Inventories []model.Inventory

	RoleDefaults   []string
	RoleVars       []string
	RegisteredVars []string
	SetFacts       []string

	Become         *model.BecomeInfo
	ModuleDefaults map[string]any

	SetHistory map[string][]model.Variable
	UseHistory map[string][]model.ResolveHistory

	Chain []ChainNode
}

// New creates an empty context. The group_vars inventories are consulted
// when a name is bound nowhere else.
func New(inventories ...model.Inventory) *Context {
	return &Context{
		extractor:      interpolation.NewExtractor(),
		Variables:      make(map[string]any),
		bindings:       make(map[string]model.Variable),
		flat:           make(map[string]model.Variable),
		live:           make(map[string][]liveBinding),
		Options:        make(map[string]any),
		Inventories:    inventories,
		ModuleDefaults: make(map[string]any),
		SetHistory:     make(map[string][]model.Variable),
		UseHistory:     make(map[string][]model.ResolveHistory),
	}
}

// Add ingests the variables an object defines. Modules, role references and
// repositories define nothing and are not recorded in the chain.
func (c *Context) Add(obj model.Object, depth int) {
	var options map[string]any
	scope := c.lastScope + 1

	switch spec := obj.(type) {
	case *model.Playbook:
		c.bind(spec.Variables, model.PlaybookGroupVarsAll, spec.Key, scope)
	case *model.Play:
		c.bind(spec.Variables, model.PlayVars, spec.Key, scope)
		c.setEscalation(spec.Become, spec.ModuleDefaults)
		options = spec.Options
	case *model.Role:
		play := c.playScope(scope)
		c.bind(spec.DefaultVariables, model.RoleDefaults, spec.Key, play)
		c.bind(spec.Variables, model.RoleVars, spec.Key, play)
		c.RoleDefaults = appendNames(c.RoleDefaults, spec.DefaultVariables)
		c.RoleVars = appendNames(c.RoleVars, spec.Variables)
	case *model.Collection:
		c.bind(spec.Variables, model.Unknown, spec.Key, scope)
	case *model.TaskFile:
		c.bind(spec.Variables, model.TaskVars, spec.Key, scope)
	case *model.Task:
		c.bind(spec.Variables, model.TaskVars, spec.Key, scope)
		c.bind(spec.RegisteredVariables, model.RegisteredVars, spec.Key, hostScope)
		c.bind(spec.SetFacts, model.SetFacts, spec.Key, hostScope)
		c.RegisteredVars = appendNames(c.RegisteredVars, spec.RegisteredVariables)
		c.SetFacts = appendNames(c.SetFacts, spec.SetFacts)
		c.setEscalation(spec.Become, spec.ModuleDefaults)
		options = spec.Options
	default:
		return
	}

	for k, v := range options {
		c.Options[k] = v
	}
	c.lastScope = scope
	c.Chain = append(c.Chain, ChainNode{Key: obj.ObjectKey(), Depth: depth, Obj: obj, scope: scope})
}

// playScope returns the scope of the nearest play in the chain, or own when
// there is none
func (c *Context) playScope(own int) int {
	for i := len(c.Chain) - 1; i >= 0; i-- {
		if _, ok := c.Chain[i].Obj.(*model.Play); ok {
			return c.Chain[i].scope
		}
	}
	return own
}

// Unwind drops chain entries at depth or deeper, leaving the ancestry of a
// node about to be added at depth. The bindings scoped to a dropped entry
// are removed and the remaining binding of each affected name wins again.
func (c *Context) Unwind(depth int) {
	dropped := make(map[int]struct{})
	n := len(c.Chain)
	for n > 0 && c.Chain[n-1].Depth >= depth {
		n--
		dropped[c.Chain[n].scope] = struct{}{}
	}
	c.Chain = c.Chain[:n]
	if len(dropped) == 0 {
		return
	}

	for name, list := range c.live {
		kept := make([]liveBinding, 0, len(list))
		for _, lb := range list {
			if _, ok := dropped[lb.scope]; !ok {
				kept = append(kept, lb)
			}
		}
		if len(kept) == len(list) {
			continue
		}
		if len(kept) == 0 {
			delete(c.live, name)
		} else {
			c.live[name] = kept
		}
		c.elect(name)
	}
}

func (c *Context) setEscalation(become *model.BecomeInfo, moduleDefaults map[string]any) {
	if become != nil {
		c.Become = become
	}
	if len(moduleDefaults) > 0 {
		c.ModuleDefaults = moduleDefaults
	}
}

// bind records every variable of vars in sorted name order
func (c *Context) bind(vars map[string]any, t model.VariableType, setter string, scope int) {
	for _, name := range sortedNames(vars) {
		v := model.Variable{Name: name, Value: vars[name], Type: t, Setter: setter}
		c.SetHistory[name] = append(c.SetHistory[name], v)
		c.live[name] = append(c.live[name], liveBinding{v: v, scope: scope})
		c.elect(name)
	}
}

// elect makes the winning live binding of name visible, or removes name when
// no binding is left
func (c *Context) elect(name string) {
	list := c.live[name]
	if len(list) == 0 {
		delete(c.bindings, name)
		delete(c.Variables, name)
		c.clearPaths(name)
		delete(c.flat, name)
		return
	}

	winner := list[0].v
	for _, lb := range list[1:] {
		if lb.v.Type >= winner.Type {
			winner = lb.v
		}
	}
	c.bindings[name] = winner
	c.Variables[name] = winner.Value
	c.reflatten(winner)
}

func (c *Context) clearPaths(name string) {
	prefix := name + "."
	for path := range c.flat {
		if strings.HasPrefix(path, prefix) {
			delete(c.flat, path)
		}
	}
}

// reflatten replaces the dot-path entries below a top-level binding
func (c *Context) reflatten(v model.Variable) {
	c.clearPaths(v.Name)
	c.flat[v.Name] = v
	for path, leaf := range Flatten(v.Value, v.Name) {
		c.flat[path] = model.Variable{Name: path, Value: leaf, Type: v.Type, Setter: v.Setter}
	}
}

// Flatten returns every nested dict entry of value keyed by its dot path
// below prefix. Non-dict values produce nothing.
func Flatten(value any, prefix string) map[string]any {
	out := make(map[string]any)
	flattenInto(out, value, prefix)
	return out
}

func flattenInto(out map[string]any, value any, prefix string) {
	m, ok := value.(map[string]any)
	if !ok {
		return
	}
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		out[path] = v
		flattenInto(out, v, path)
	}
}

// ResolveVariable resolves a name to its value and origin. Magic variables
// resolve to no value with HostFacts origin; an unbound name resolves to no
// value with Unknown origin. Template values are expanded recursively.
func (c *Context) ResolveVariable(name string) Resolution {
	val, t, history := c.resolveVariable(name, model.ResolveHistory{})
	c.UseHistory[name] = append(c.UseHistory[name], history)
	return Resolution{Value: val, Type: t, History: history}
}

func (c *Context) resolveVariable(name string, history model.ResolveHistory) (any, model.VariableType, model.ResolveHistory) {
	if entry, ok := history[name]; ok {
		return entry.Value, entry.Type, history
	}

	if IsSpecialVariable(name) {
		return nil, model.HostFacts, history
	}

	h := history.Copy()

	val, t, ok := c.lookup(name)
	if !ok {
		h[name] = model.HistoryEntry{Value: nil, Type: model.Unknown}
		return nil, model.Unknown, h
	}

	h[name] = model.HistoryEntry{Value: val, Type: t}
	switch v := val.(type) {
	case string:
		resolved, expanded := c.resolveSingle(v, h)
		return resolved, t, expanded
	case []any:
		list := make([]any, len(v))
		for i, item := range v {
			list[i], h = c.resolveSingle(item, h)
		}
		return list, t, h
	}
	return val, t, h
}

// lookup finds the winning binding of a name in the live map, then in the
// dot-path index, then in the "all" group_vars inventories
func (c *Context) lookup(name string) (any, model.VariableType, bool) {
	if b, ok := c.bindings[name]; ok && b.Value != nil {
		return b.Value, b.Type, true
	}
	if b, ok := c.flat[name]; ok && b.Value != nil {
		return b.Value, b.Type, true
	}
	for _, iv := range c.Inventories {
		if iv.Type != "group_vars" || iv.Name != "all" {
			continue
		}
		if v, ok := iv.Variables[name]; ok && v != nil {
			return v, model.InventoryGroupVarsAll, true
		}
		if v, ok := Flatten(iv.Variables, "")[name]; ok && v != nil {
			return v, model.InventoryGroupVarsAll, true
		}
	}
	return nil, model.Unknown, false
}

// ResolveSingleVariable expands the blocks of a template string. A string
// that is exactly one block resolves to the value itself, keeping its type.
func (c *Context) ResolveSingleVariable(text string) any {
	val, _ := c.resolveSingle(text, model.ResolveHistory{})
	return val
}

func (c *Context) resolveSingle(text any, history model.ResolveHistory) (any, model.ResolveHistory) {
	s, ok := text.(string)
	if !ok || !c.extractor.HasTemplate(s) {
		return text, history
	}

	h := history
	resolved := s
	for _, b := range c.extractor.Extract(s) {
		var val any
		val, _, h = c.resolveVariable(b.Name, h)
		if val == nil && b.Default != "" {
			val, _, h = c.resolveVariable(b.Default, h)
		}
		if val == nil {
			continue
		}
		if s == b.Original {
			return val, h
		}
		resolved = strings.ReplaceAll(resolved, b.Original, interpolation.Stringify(val))
	}
	return resolved, h
}

// Binding returns the winning binding of a top-level name
func (c *Context) Binding(name string) (model.Variable, bool) {
	v, ok := c.bindings[name]
	return v, ok
}

// Overridden reports whether a name has been bound more than once with
// different origins
func (c *Context) Overridden(name string) bool {
	history := c.SetHistory[name]
	for i := 1; i < len(history); i++ {
		if history[i].Type != history[i-1].Type {
			return true
		}
	}
	return false
}

// Copy returns a context that can be extended without affecting c
func (c *Context) Copy() *Context {
	cp := New(c.Inventories...)
	for k, v := range c.Variables {
		cp.Variables[k] = v
	}
	for k, v := range c.bindings {
		cp.bindings[k] = v
	}
	for k, v := range c.flat {
		cp.flat[k] = v
	}
	for k, v := range c.live {
		cp.live[k] = append([]liveBinding(nil), v...)
	}
	cp.lastScope = c.lastScope
	for k, v := range c.Options {
		cp.Options[k] = v
	}
	for k, v := range c.ModuleDefaults {
		cp.ModuleDefaults[k] = v
	}
	for k, v := range c.SetHistory {
		cp.SetHistory[k] = append([]model.Variable(nil), v...)
	}
	for k, v := range c.UseHistory {
		cp.UseHistory[k] = append([]model.ResolveHistory(nil), v...)
	}
	cp.RoleDefaults = append([]string(nil), c.RoleDefaults...)
	cp.RoleVars = append([]string(nil), c.RoleVars...)
	cp.RegisteredVars = append([]string(nil), c.RegisteredVars...)
	cp.SetFacts = append([]string(nil), c.SetFacts...)
	cp.Become = c.Become
	cp.Chain = append([]ChainNode(nil), c.Chain...)
	return cp
}

// ChainString renders the chain of added objects as an indented outline
func (c *Context) ChainString() string {
	var sb strings.Builder
	for _, node := range c.Chain {
		indent := strings.Repeat("  ", node.Depth)
		switch obj := node.Obj.(type) {
		case *model.Task:
			fmt.Fprintf(&sb, "%sTask: %s (module: %s)\n", indent, obj.Name, obj.Module)
		case *model.Play:
			fmt.Fprintf(&sb, "%sPlay: %s\n", indent, obj.Name)
		case *model.Playbook:
			fmt.Fprintf(&sb, "%sPlaybook: %s\n", indent, obj.Name)
		case *model.Role:
			fmt.Fprintf(&sb, "%sRole: %s\n", indent, obj.Name)
		case *model.TaskFile:
			fmt.Fprintf(&sb, "%sTaskFile: %s\n", indent, obj.Name)
		case *model.Collection:
			fmt.Fprintf(&sb, "%sCollection: %s\n", indent, obj.Name)
		}
	}
	return sb.String()
}

func appendNames(names []string, vars map[string]any) []string {
	return append(names, sortedNames(vars)...)
}

func sortedNames(vars map[string]any) []string {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
