// Package tree expands entry points into call trees: the pre-order sequence
// of every definition reachable from a playbook, role or task file.
package tree

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ansible/ansible-risk-insight-sub000/internal/ctxlog"
	"github.com/ansible/ansible-risk-insight-sub000/internal/index"
	"github.com/ansible/ansible-risk-insight-sub000/internal/knowledge"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
	"github.com/ansible/ansible-risk-insight-sub000/internal/resolver"
)

// Telemetry is what a build observed besides the calls themselves
type Telemetry struct {
	Failures          model.Failures           `json:"failures"`
	ExtraRequirements []model.ExtraRequirement `json:"extra_requirements,omitempty"`
	Cycles            []model.Cycle            `json:"cycles,omitempty"`
}

// Tree is the call sequence built from one entry point
type Tree struct {
	Root      string              `json:"root"`
	Calls     []*model.CallObject `json:"calls"`
	Telemetry Telemetry           `json:"telemetry"`
}

// TaskCalls returns the task calls of the tree in order
func (t *Tree) TaskCalls() []*model.CallObject {
	var out []*model.CallObject
	for _, c := range t.Calls {
		if _, ok := c.Task(); ok {
			out = append(out, c)
		}
	}
	return out
}

// String renders the tree as an indented outline
func (t *Tree) String() string {
	var sb strings.Builder
	for _, c := range t.Calls {
		line := model.CallTypeName(c.Spec.ObjectType()) + " " + model.KeyName(c.SpecKey)
		if c.ResolvedName != "" {
			line += " -> " + c.ResolvedName
		}
		fmt.Fprintf(&sb, "%s%s\n", strings.Repeat("  ", c.Depth), line)
	}
	return sb.String()
}

// Builder builds call trees over an index, falling back to a knowledge store
// for references the index cannot resolve. A Builder is not safe for
// concurrent use.
type Builder struct {
	idx     *index.Index
	store   knowledge.Store
	cache   *resolver.Cache
	output  io.Writer
	verbose bool

	// external remembers the store match behind every key merged into the
	// index, so later builds still report the requirement
	external map[string]knowledge.Match
}

// NewBuilder creates a builder. store may be nil.
func NewBuilder(idx *index.Index, store knowledge.Store, opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.Cache == nil {
		o.Cache = resolver.NewCache(idx)
	}
	return &Builder{
		idx:      idx,
		store:    store,
		cache:    o.Cache,
		output:   o.Output,
		verbose:  o.Verbose,
		external: make(map[string]knowledge.Match),
	}
}

// SetVerbose toggles verbose progress output
func (b *Builder) SetVerbose(verbose bool) {
	b.verbose = verbose
}

// EntryPoints returns the keys trees are built from: mapped playbooks, then
// mapped roles, then mapped task files when the target is a task file
func (b *Builder) EntryPoints() []string {
	m := b.idx.Mappings()
	var keys []string
	for _, p := range m.Playbooks {
		keys = append(keys, p.Key)
	}
	for _, r := range m.Roles {
		keys = append(keys, r.Key)
	}
	if m.TargetType == model.TargetTaskFile {
		for _, tf := range m.Taskfiles {
			keys = append(keys, tf.Key)
		}
	}
	return keys
}

// BuildAll builds one tree per entry point
func (b *Builder) BuildAll(ctx context.Context) ([]*Tree, error) {
	var trees []*Tree
	for _, key := range b.EntryPoints() {
		t, err := b.Build(ctx, key)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	return trees, nil
}

// frame is one pending visit of the walk
type frame struct {
	key      string
	caller   *model.CallObject
	index    int
	handover string
	branch   map[string]struct{}
}

// child is one pending visit produced by a node
type child struct {
	key      string
	handover string
}

// outcome is the memoized result of resolving one reference in a build
type outcome struct {
	key       string
	name      string
	fromStore bool
	match     knowledge.Match
}

// build holds the state of one Build call
type build struct {
	*Builder
	ctx   context.Context
	tree  *Tree
	memo  map[string]outcome
	extra map[string]struct{}
}

// Build expands the definition with the given key into its call tree.
// Unresolvable references and cycles do not fail the build; they are recorded
// in the tree's telemetry.
func (b *Builder) Build(ctx context.Context, entryKey string) (*Tree, error) {
	if _, ok := b.idx.Get(entryKey); !ok {
		return nil, fmt.Errorf("entry point %q not found in definitions", entryKey)
	}

	st := &build{
		Builder: b,
		ctx:     ctx,
		tree: &Tree{
			Root:      entryKey,
			Telemetry: Telemetry{Failures: model.Failures{}},
		},
		memo:  make(map[string]outcome),
		extra: make(map[string]struct{}),
	}
	st.walk(entryKey)
	return st.tree, nil
}

func (st *build) walk(entryKey string) {
	stack := []frame{{key: entryKey, branch: map[string]struct{}{}}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := f.branch[f.key]; seen {
			callerKey := ""
			if f.caller != nil {
				callerKey = f.caller.Key
			}
			st.tree.Telemetry.Cycles = append(st.tree.Telemetry.Cycles, model.Cycle{Key: f.key, CallerKey: callerKey})
			ctxlog.FromContext(st.ctx).Debug("cycle cut", "key", f.key, "caller", callerKey)
			continue
		}

		obj, ok := st.idx.Get(f.key)
		if !ok {
			ctxlog.FromContext(st.ctx).Debug("definition missing from index", "key", f.key)
			continue
		}

		call := model.NewCallObject(obj, f.caller, f.index)
		st.tree.Calls = append(st.tree.Calls, call)

		children := st.children(call, obj, f.handover)
		if len(children) == 0 {
			continue
		}

		branch := make(map[string]struct{}, len(f.branch)+1)
		for k := range f.branch {
			branch[k] = struct{}{}
		}
		branch[f.key] = struct{}{}

		// Push in reverse so the first child is visited next
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{
				key:      children[i].key,
				caller:   call,
				index:    i,
				handover: children[i].handover,
				branch:   branch,
			})
		}
	}
}

func (st *build) children(call *model.CallObject, obj model.Object, handover string) []child {
	switch spec := obj.(type) {
	case *model.Playbook:
		return keysOf(spec.Plays)
	case *model.Play:
		return st.playChildren(spec)
	case *model.Role:
		if key := st.roleEntry(spec, handover); key != "" {
			return []child{{key: key}}
		}
	case *model.TaskFile:
		return keysOf(spec.Tasks)
	case *model.Task:
		return st.taskChildren(call, spec)
	}
	return nil
}

func keysOf(keys []string) []child {
	out := make([]child, 0, len(keys))
	for _, k := range keys {
		out = append(out, child{key: k})
	}
	return out
}

func (st *build) playChildren(play *model.Play) []child {
	out := keysOf(play.PreTasks)
	out = append(out, keysOf(play.Tasks)...)

	for i := range play.Roles {
		rip := &play.Roles[i]
		cip := rip.CollectionsInPlay
		if len(cip) == 0 {
			cip = play.CollectionsInPlay
		}
		req := resolver.Request{
			Kind:              resolver.KindRole,
			Name:              rip.Name,
			CallerKey:         play.Key,
			OwnCollection:     play.Collection,
			CollectionsInPlay: cip,
		}
		if res := st.resolve(req, play.Key); res.key != "" {
			out = append(out, child{key: res.key, handover: rip.TasksFrom()})
		}
	}

	out = append(out, keysOf(play.PostTasks)...)

	if play.ImportPlaybook != "" {
		req := resolver.Request{Kind: resolver.KindPlaybook, Name: play.ImportPlaybook, CallerKey: play.Key}
		if res := st.resolve(req, play.Key); res.key != "" {
			out = append(out, child{key: res.key})
		}
	}
	return out
}

func (st *build) taskChildren(call *model.CallObject, task *model.Task) []child {
	name := task.Executable
	if name == "" {
		name = task.Module
	}
	if name == "" {
		return nil
	}

	req := resolver.Request{
		Name:              name,
		CallerKey:         task.Key,
		OwnCollection:     task.Collection,
		CollectionsInPlay: task.CollectionsInPlay,
	}
	handover := ""
	switch task.ExecutableType {
	case model.ExecRole:
		req.Kind = resolver.KindRole
		handover = task.TasksFrom()
	case model.ExecTaskFile:
		req.Kind = resolver.KindTaskFile
	default:
		req.Kind = resolver.KindModule
	}

	res := st.resolve(req, task.Key)
	if res.fromStore {
		call.PossibleCandidates = []model.Candidate{res.match.Candidate()}
	} else if res.key != "" {
		call.ResolvedName = res.name
	}
	if res.key == "" {
		return nil
	}
	return []child{{key: res.key, handover: handover}}
}

// roleEntry returns the task file of role run for entry: tasks/main.yml by
// default, or tasks/<handover>.yml
func (st *build) roleEntry(role *model.Role, handover string) string {
	entry := "main"
	if handover != "" {
		entry = strings.TrimSuffix(strings.TrimSuffix(handover, ".yml"), ".yaml")
	}
	entry = strings.ToLower(entry)

	for _, key := range role.Taskfiles {
		p := model.KeyName(key)
		if tf, ok := st.idx.TaskFile(key); ok && tf.DefinedIn != "" {
			p = strings.ToLower(tf.DefinedIn)
		}
		if strings.HasSuffix(p, "tasks/"+entry+".yml") || strings.HasSuffix(p, "tasks/"+entry+".yaml") {
			return key
		}
	}
	return ""
}

// resolve resolves a reference once per build. Local misses fall back to the
// knowledge store; total misses are tallied.
func (st *build) resolve(req resolver.Request, usedIn string) outcome {
	memo := req.MemoKey()
	res, seen := st.memo[memo]
	if !seen {
		res = st.lookup(req)
		st.memo[memo] = res
		if res.key == "" {
			st.tree.Telemetry.Failures.Add(string(req.Kind), req.Name)
			if st.verbose {
				_, _ = fmt.Fprintf(st.output, "⚠️  Unresolved %s '%s' in %s\n", req.Kind, req.Name, usedIn)
			}
		}
	}

	if res.fromStore {
		st.addExtraRequirement(req, res, usedIn)
	}
	return res
}

func (st *build) lookup(req resolver.Request) outcome {
	if key, _ := st.cache.Resolve(req); key != "" {
		if m, ok := st.external[key]; ok {
			return outcome{key: key, name: m.Name, fromStore: true, match: m}
		}
		return outcome{key: key, name: resolvedName(req.Kind, key, st.idx)}
	}

	if st.store == nil || req.Kind == resolver.KindPlaybook {
		return outcome{}
	}

	matches, err := st.search(req)
	if err != nil {
		ctxlog.FromContext(st.ctx).Warn("knowledge store lookup failed", "kind", req.Kind, "name", req.Name, "error", err)
		return outcome{}
	}
	if len(matches) == 0 {
		return outcome{}
	}

	m := matches[0]
	st.idx.AddExternal(m.Objects()...)
	st.external[m.Key] = m
	st.cache.Forget()
	ctxlog.FromContext(st.ctx).Debug("resolved from knowledge store",
		"kind", req.Kind, "name", req.Name, "key", m.Key, "source", m.Provenance.Name, "version", m.Provenance.Version)
	if st.verbose {
		_, _ = fmt.Fprintf(st.output, "📦 %s '%s' found in %s %s\n", req.Kind, req.Name, m.Provenance.Type, m.Provenance.Name)
	}
	return outcome{key: m.Key, name: m.Name, fromStore: true, match: m}
}

func (st *build) search(req resolver.Request) ([]knowledge.Match, error) {
	switch req.Kind {
	case resolver.KindModule:
		return st.store.SearchModule(req.Name)
	case resolver.KindRole:
		return st.store.SearchRole(req.Name)
	case resolver.KindTaskFile:
		_, callerPath, _ := model.DefinitionSite(req.CallerKey)
		return st.store.SearchTaskfile(req.Name, callerPath, req.CallerKey)
	}
	return nil, nil
}

func (st *build) addExtraRequirement(req resolver.Request, res outcome, usedIn string) {
	id := string(req.Kind) + "\x00" + res.match.Key + "\x00" + usedIn
	if _, ok := st.extra[id]; ok {
		return
	}
	st.extra[id] = struct{}{}
	st.tree.Telemetry.ExtraRequirements = append(st.tree.Telemetry.ExtraRequirements, model.ExtraRequirement{
		Type:      model.ObjectType(req.Kind),
		Name:      res.match.Name,
		DefinedIn: res.match.Provenance,
		UsedIn:    usedIn,
		ObjectKey: res.match.Key,
	})
}

// resolvedName is the fqcn of a module or role, or the key of a task file
func resolvedName(kind resolver.Kind, key string, idx *index.Index) string {
	switch kind {
	case resolver.KindModule, resolver.KindRole:
		if obj, ok := idx.Get(key); ok {
			switch o := obj.(type) {
			case *model.Module:
				return o.FQCN
			case *model.Role:
				return o.FQCN
			}
		}
		return model.KeyName(key)
	}
	return key
}
