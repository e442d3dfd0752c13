// Package engine runs a complete scan: it indexes a definition bundle, builds
// the call tree of every entry point and annotates each task call with its
// resolved module options.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/ansible/ansible-risk-insight-sub000/internal/ctxlog"
	"github.com/ansible/ansible-risk-insight-sub000/internal/definitions"
	"github.com/ansible/ansible-risk-insight-sub000/internal/errors"
	"github.com/ansible/ansible-risk-insight-sub000/internal/index"
	"github.com/ansible/ansible-risk-insight-sub000/internal/knowledge"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
	"github.com/ansible/ansible-risk-insight-sub000/internal/tree"
	"github.com/ansible/ansible-risk-insight-sub000/internal/varcontext"
)

// Engine scans definition bundles
type Engine struct {
	output  io.Writer
	store   knowledge.Store
	verbose bool
}

// NewEngine creates a new engine writing progress to output
func NewEngine(output io.Writer) *Engine {
	return NewEngineWithOptions(WithOutput(output))
}

// NewEngineWithOptions creates a new engine from functional options
func NewEngineWithOptions(opts ...Option) *Engine {
	o := &EngineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	o.applyDefaults()

	return &Engine{
		output:  o.Output,
		store:   o.Store,
		verbose: o.Verbose,
	}
}

// SetVerbose enables or disables verbose output
func (e *Engine) SetVerbose(verbose bool) {
	e.verbose = verbose
}

// SetStore sets the knowledge store used as a resolution fallback
func (e *Engine) SetStore(store knowledge.Store) {
	e.store = store
}

// Result is the outcome of one scan
type Result struct {
	Root       *model.Definitions
	Ext        *model.Definitions
	Trees      []*tree.Tree
	LoopErrors []*errors.LoopSourceError
}

// Scan indexes root and ext, builds every call tree and annotates the task
// calls. ext may be nil.
func (e *Engine) Scan(ctx context.Context, root, ext *model.Definitions) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	idx, err := index.Build(root, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to index definitions: %w", err)
	}

	modules, roles, taskfiles, playbooks := idx.Counts()
	logger.Debug("definitions indexed",
		"modules", modules, "roles", roles, "taskfiles", taskfiles, "playbooks", playbooks)

	builder := tree.NewBuilder(idx, e.store, tree.WithOutput(e.output), tree.WithVerbose(e.verbose))
	trees, err := builder.BuildAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build call trees: %w", err)
	}

	result := &Result{Root: idx.Root(), Ext: idx.Ext(), Trees: trees}
	for _, t := range trees {
		if e.verbose {
			_, _ = fmt.Fprintf(e.output, "🌳 %s: %d calls\n", model.KeyName(t.Root), len(t.Calls))
		}
		loopErrs := Annotate(t, Inventories(idx.Root(), t.Root))
		for _, le := range loopErrs {
			logger.Warn("loop source not expanded", "task", le.TaskKey, "kind", le.Kind)
		}
		result.LoopErrors = append(result.LoopErrors, loopErrs...)
	}

	return result, nil
}

// Annotate walks the tree in order, accumulating variables into one context,
// and sets the variable annotation of every task call. The context chain is
// unwound to each node's ancestry before the node is added, so bindings flow
// forward through the tree while the chain stays a path from the root.
func Annotate(t *tree.Tree, inventories []model.Inventory) []*errors.LoopSourceError {
	vc := varcontext.New(inventories...)

	var loopErrs []*errors.LoopSourceError
	for _, call := range t.Calls {
		vc.Unwind(call.Depth)
		vc.Add(call.Spec, call.Depth)

		if _, ok := call.Task(); !ok {
			continue
		}
		ann, err := varcontext.ResolveModuleOptions(vc, call)
		call.Annotation = ann
		if err != nil {
			var lse *errors.LoopSourceError
			if stderrors.As(err, &lse) {
				loopErrs = append(loopErrs, lse)
			}
		}
	}
	return loopErrs
}

// Findings packages the scanned definitions and the tree telemetry for
// registration in a knowledge store
func (r *Result) Findings(meta model.Provenance) *knowledge.Findings {
	f := &knowledge.Findings{
		Metadata:        meta,
		Root:            definitions.FromDefinitions(r.Root),
		ResolveFailures: model.Failures{},
	}
	if r.Ext != nil && r.Ext.Count() > 0 {
		f.Ext = []*definitions.Bundle{definitions.FromDefinitions(r.Ext)}
	}
	for _, t := range r.Trees {
		f.ResolveFailures.Merge(t.Telemetry.Failures)
		f.ExtraRequirements = append(f.ExtraRequirements, t.Telemetry.ExtraRequirements...)
	}
	return f
}
