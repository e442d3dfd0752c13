// Package resolver finds the definition a module, role, task file or
// playbook reference points to. Every function here is pure over the index;
// the knowledge store fallback belongs to the caller.
package resolver

import (
	"strings"

	"github.com/ansible/ansible-risk-insight-sub000/internal/index"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

const legacyPrefix = "ansible.legacy."

// maxRedirectHops bounds chained meta/runtime.yml redirects
const maxRedirectHops = 4

// ResolveModule returns the key of the module a task's executable refers to,
// or "" if nothing matches. Order: exact fqcn, suffix ".<name>" (builtin
// first, then lexicographic by fqcn), then the redirect table.
func ResolveModule(name string, idx *index.Index) string {
	if name == "" || isTemplated(name) {
		return ""
	}

	if m, ok := idx.Module(name); ok {
		return m.Key
	}

	// ansible.legacy is an alias of ansible.builtin for builtin modules
	if strings.HasPrefix(name, legacyPrefix) {
		if m, ok := idx.Module(model.BuiltinCollection + "." + strings.TrimPrefix(name, legacyPrefix)); ok {
			return m.Key
		}
	}

	if key := suffixModule(name, idx); key != "" {
		return key
	}

	target := name
	for hop := 0; hop < maxRedirectHops; hop++ {
		next, ok := idx.Redirect(target)
		if !ok || next == target {
			break
		}
		if m, ok := idx.Module(next); ok {
			return m.Key
		}
		target = next
	}

	return ""
}

func suffixModule(name string, idx *index.Index) string {
	suffix := "." + name
	builtinFQCN := model.BuiltinCollection + suffix
	first := ""
	for _, fqcn := range idx.ModuleNames() {
		if !strings.HasSuffix(fqcn, suffix) {
			continue
		}
		if fqcn == builtinFQCN {
			first = fqcn
			break
		}
		if first == "" {
			first = fqcn
		}
	}
	if first == "" {
		return ""
	}
	m, _ := idx.Module(first)
	return m.Key
}

// ResolveRole returns the key of the role a reference points to, or "".
// A bare name is first qualified with each collection of the play's
// collections keyword in order or, when the play lists none, with the
// caller's own collection.
// After that the name is matched exactly and finally by suffix
// (lexicographic by fqcn).
func ResolveRole(name string, idx *index.Index, ownCollection string, collectionsInPlay []string) string {
	if name == "" || isTemplated(name) {
		return ""
	}

	if !strings.Contains(name, ".") {
		for _, coll := range collectionsInPlay {
			if r, ok := idx.Role(coll + "." + name); ok {
				return r.Key
			}
		}
		if len(collectionsInPlay) == 0 && ownCollection != "" {
			if r, ok := idx.Role(ownCollection + "." + name); ok {
				return r.Key
			}
		}
	}

	if r, ok := idx.Role(name); ok {
		return r.Key
	}

	suffix := "." + name
	for _, fqcn := range idx.RoleNames() {
		if strings.HasSuffix(fqcn, suffix) {
			r, _ := idx.Role(fqcn)
			return r.Key
		}
	}

	return ""
}

// isTemplated reports whether a reference still contains a Jinja2 expression.
// Such references are resolved only after variable resolution, which the
// call tree does not do.
func isTemplated(ref string) bool {
	return strings.Contains(ref, "{{")
}
