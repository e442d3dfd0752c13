package varcontext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ansible/ansible-risk-insight-sub000/internal/errors"
	"github.com/ansible/ansible-risk-insight-sub000/internal/interpolation"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// defaultLoopVar is the loop variable name when a task sets no loop_control
const defaultLoopVar = "item"

// optionResolver holds the state of one ResolveModuleOptions call
type optionResolver struct {
	ctx *Context
	ann *model.VariableAnnotation
}

// ResolveModuleOptions resolves the module options of a task call once per
// loop iteration. A task without a loop has exactly one iteration. A loop
// source that is neither a string, a list nor a dict is a LoopSourceError;
// the returned annotation then carries the error and no option sets.
func ResolveModuleOptions(c *Context, call *model.CallObject) (*model.VariableAnnotation, error) {
	task, ok := call.Spec.(*model.Task)
	if !ok {
		return nil, fmt.Errorf("call %s is not a task call", call.Key)
	}

	r := &optionResolver{
		ctx: c,
		ann: &model.VariableAnnotation{
			MutableVars:   make(map[string][]string),
			UsedVariables: make(map[string]model.ResolveHistory),
		},
	}

	bindings, err := r.loopBindings(task)
	if err != nil {
		r.ann.Error = err.Error()
		return r.ann, err
	}
	if len(task.Loop) > 0 {
		r.ann.Loop = bindings
	}

	r.ann.ResolvedOptions = make([]any, 0, len(bindings))
	for _, b := range bindings {
		r.ann.ResolvedOptions = append(r.ann.ResolvedOptions, r.resolveOptions(task.ModuleOptions, b))
	}
	return r.ann, nil
}

// loopBindings expands the loop of a task into one binding per iteration
func (r *optionResolver) loopBindings(task *model.Task) ([]model.LoopBinding, error) {
	if len(task.Loop) == 0 {
		return []model.LoopBinding{{Values: map[string]any{}, SourceType: model.LoopVars}}, nil
	}

	loopKey := defaultLoopVar
	for _, k := range sortedNames(task.Loop) {
		loopKey = k
		break
	}
	source := task.Loop[loopKey]
	r.addVariable(loopKey, source, model.LoopVars)

	var bindings []model.LoopBinding
	switch v := source.(type) {
	case string:
		blocks := r.ctx.extractor.Extract(v)
		if len(blocks) == 0 {
			return []model.LoopBinding{literalBinding(loopKey, v)}, nil
		}
		bindings = r.expandVariable(loopKey, blocks[0].Name, true)
	case []any:
		for _, item := range v {
			s, isString := item.(string)
			if isString && r.ctx.extractor.HasTemplate(s) {
				blocks := r.ctx.extractor.Extract(s)
				if len(blocks) == 0 {
					bindings = append(bindings, literalBinding(loopKey, s))
					continue
				}
				bindings = append(bindings, r.expandVariable(loopKey, blocks[0].Name, false)...)
				continue
			}
			bindings = append(bindings, literalBinding(loopKey, item))
		}
	case map[string]any:
		for _, k := range sortedNames(v) {
			bindings = append(bindings, literalBinding(loopKey, map[string]any{"key": k, "value": v[k]}))
		}
	case nil:
		// An empty loop runs the task zero times
	default:
		return nil, errors.NewLoopSourceError(task.Key, source)
	}
	return bindings, nil
}

// expandVariable resolves the variable a loop is drawn from. A list yields
// one iteration per element. A dict yields key/value iterations when
// expandDict is set. Anything else is a single iteration.
func (r *optionResolver) expandVariable(loopKey, name string, expandDict bool) []model.LoopBinding {
	res := r.resolve(name)
	r.addVariable(name, res.Value, res.Type)

	bind := func(value any) model.LoopBinding {
		b := literalBinding(loopKey, value)
		b.Source = name
		b.SourceType = res.Type
		return b
	}

	switch v := res.Value.(type) {
	case []any:
		out := make([]model.LoopBinding, 0, len(v))
		for _, item := range v {
			out = append(out, bind(item))
		}
		return out
	case map[string]any:
		if expandDict {
			out := make([]model.LoopBinding, 0, len(v))
			for _, k := range sortedNames(v) {
				out = append(out, bind(map[string]any{"key": k, "value": v[k]}))
			}
			return out
		}
	}
	return []model.LoopBinding{bind(res.Value)}
}

// literalBinding binds the loop variable and every dot path below it
func literalBinding(loopKey string, value any) model.LoopBinding {
	values := map[string]any{loopKey: value}
	for path, v := range Flatten(value, loopKey) {
		values[path] = v
	}
	return model.LoopBinding{Values: values, SourceType: model.LoopVars}
}

func (r *optionResolver) resolveOptions(options any, b model.LoopBinding) any {
	switch opts := options.(type) {
	case map[string]any:
		resolved := make(map[string]any, len(opts))
		for k, v := range opts {
			s, ok := v.(string)
			if !ok || !r.ctx.extractor.HasTemplate(s) {
				resolved[k] = v
				continue
			}
			resolved[k] = r.resolveText(k, s, b)
		}
		return resolved
	case string:
		// Inline "key=value" options are resolved as one string
		if r.ctx.extractor.HasTemplate(opts) {
			return r.resolveText("", opts, b)
		}
		return opts
	}
	return options
}

// resolveText substitutes the blocks of one option value. Loop bindings win
// over context variables, which win over the default() variable.
func (r *optionResolver) resolveText(optionKey, text string, b model.LoopBinding) any {
	resolved := text
	for _, blk := range r.ctx.extractor.Extract(text) {
		val, bound := b.Values[blk.Name]
		if bound && val != nil {
			if b.Source != "" && b.SourceType.IsMutable() {
				r.markMutable(optionKey, b.Source)
			}
		} else {
			val = nil
			res := r.resolve(blk.Name)
			if res.Found() {
				val = res.Value
				r.addVariable(blk.Name, val, res.Type)
				if res.Type.IsMutable() {
					r.markMutable(optionKey, blk.Name)
				}
			} else if blk.Default != "" {
				def := r.resolve(blk.Default)
				if def.Found() {
					val = def.Value
					r.addVariable(blk.Default, val, def.Type)
					if def.Type.IsMutable() {
						r.markMutable(optionKey, blk.Default)
					}
				}
			}
			if val == nil {
				r.addVariable(blk.Name, nil, res.Type)
				continue
			}
		}

		if text == blk.Original {
			return val
		}
		resolved = strings.ReplaceAll(resolved, blk.Original, interpolation.Stringify(val))
	}
	return resolved
}

func (r *optionResolver) resolve(name string) Resolution {
	res := r.ctx.ResolveVariable(name)
	r.ann.UsedVariables[name] = res.History
	return res
}

// addVariable records a discovered variable once per name
func (r *optionResolver) addVariable(name string, value any, t model.VariableType) {
	for _, v := range r.ann.Variables {
		if v.Name == name {
			return
		}
	}
	r.ann.Variables = append(r.ann.Variables, model.ResolvedVariable{Name: name, Value: value, Type: t})
}

func (r *optionResolver) markMutable(optionKey, name string) {
	for _, existing := range r.ann.MutableVars[optionKey] {
		if existing == name {
			return
		}
	}
	r.ann.MutableVars[optionKey] = append(r.ann.MutableVars[optionKey], name)
	sort.Strings(r.ann.MutableVars[optionKey])
}
