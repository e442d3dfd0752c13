package resolver

import (
	"path"
	"strings"

	"github.com/ansible/ansible-risk-insight-sub000/internal/index"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

const rolesDir = "roles/"

// ResolveTaskfile returns the key of the task file an include/import refers
// to, or "". The reference is tried relative to the caller's file first,
// then rooted at the nearest roles/ directory for "roles/..." references,
// then as a repository-relative path.
func ResolveTaskfile(ref string, idx *index.Index, callerKey string) string {
	if ref == "" || isTemplated(ref) {
		return ""
	}

	prefix, definedIn, ok := model.DefinitionSite(callerKey)
	if !ok {
		return ""
	}

	for _, c := range taskfileCandidates(ref, prefix, definedIn) {
		if tf, ok := idx.TaskFile(c); ok {
			return tf.Key
		}
	}
	return ""
}

func taskfileCandidates(ref, prefix, definedIn string) []string {
	var keys []string
	add := func(p, fpath string) {
		keys = append(keys, "taskfile "+p+"taskfile"+model.KeyDelimiter+strings.ToLower(fpath))
	}

	add(prefix, path.Clean(path.Join(path.Dir(definedIn), ref)))

	if strings.HasPrefix(ref, rolesDir) {
		base := ""
		if i := strings.LastIndex(definedIn, rolesDir); i >= 0 {
			base = definedIn[:i]
		}
		fpath := path.Clean(path.Join(base, ref))
		add(prefix, fpath)

		// A task file of another standalone role carries that role's prefix
		roleName := strings.SplitN(strings.TrimPrefix(ref, rolesDir), "/", 2)[0]
		if roleName != "" && !strings.HasPrefix(prefix, "collection"+model.KeyDelimiter) {
			add(model.GlobalKeyPrefix("", roleName), fpath)
		}
	}

	add(prefix, path.Clean(ref))
	return keys
}

// ResolvePlaybook returns the key of the playbook an import_playbook refers
// to, or "". The reference is tried relative to the importing playbook, then
// as a repository-relative path.
func ResolvePlaybook(ref string, idx *index.Index, callerKey string) string {
	if ref == "" || isTemplated(ref) {
		return ""
	}

	prefix, definedIn, ok := model.DefinitionSite(callerKey, model.TypePlaybook)
	if !ok {
		return ""
	}

	candidates := []string{
		path.Clean(path.Join(path.Dir(definedIn), ref)),
		path.Clean(ref),
	}
	for _, c := range candidates {
		key := "playbook " + prefix + "playbook" + model.KeyDelimiter + strings.ToLower(c)
		if pb, ok := idx.Playbook(key); ok {
			return pb.Key
		}
	}
	return ""
}

// callerSite reduces a caller key to the part that influences path
// resolution, so memoized results are shared by sibling callers
func callerSite(callerKey string, fileTypes ...model.ObjectType) string {
	prefix, definedIn, ok := model.DefinitionSite(callerKey, fileTypes...)
	if !ok {
		return callerKey
	}
	return prefix + path.Dir(definedIn)
}
