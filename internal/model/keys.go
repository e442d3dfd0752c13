package model

import (
	"fmt"
	"strings"
)

// Key grammar: "<type> <payload>", where the payload is a chain of
// "<type>:<name>" segments joined by '#'.
const (
	KeyDelimiter    = ":"
	ObjectDelimiter = "#"
)

// BuiltinCollection is the collection that ships the builtin modules
const BuiltinCollection = "ansible.builtin"

// GlobalKeyPrefix returns the ancestry prefix for objects owned by a
// collection or a role. Collection ownership wins over role ownership.
func GlobalKeyPrefix(collection, role string) string {
	if collection != "" {
		return "collection" + KeyDelimiter + collection + ObjectDelimiter
	}
	if role != "" {
		return "role" + KeyDelimiter + role + ObjectDelimiter
	}
	return ""
}

// ModuleKey builds the key of a module
func ModuleKey(fqcn, collection, role string) string {
	return fmt.Sprintf("%s %s%s%s%s", TypeModule, GlobalKeyPrefix(collection, role), TypeModule, KeyDelimiter, strings.ToLower(fqcn))
}

// BuiltinModuleKey builds the key of an ansible.builtin module from its short name
func BuiltinModuleKey(name string) string {
	return ModuleKey(BuiltinCollection+"."+name, BuiltinCollection, "")
}

// RoleKey builds the key of a role
func RoleKey(fqcn, collection string) string {
	return fmt.Sprintf("%s %s%s%s%s", TypeRole, GlobalKeyPrefix(collection, ""), TypeRole, KeyDelimiter, strings.ToLower(fqcn))
}

// TaskFileKey builds the key of a task file from its repository-relative path
func TaskFileKey(definedIn, collection, role string) string {
	return fmt.Sprintf("%s %s%s%s%s", TypeTaskFile, GlobalKeyPrefix(collection, role), TypeTaskFile, KeyDelimiter, strings.ToLower(definedIn))
}

// PlaybookKey builds the key of a playbook from its repository-relative path
func PlaybookKey(definedIn, collection, role string) string {
	return fmt.Sprintf("%s %s%s%s%s", TypePlaybook, GlobalKeyPrefix(collection, role), TypePlaybook, KeyDelimiter, strings.ToLower(definedIn))
}

// PlayKey builds the key of the index-th play of a playbook
func PlayKey(playbookKey string, index int) string {
	return childKey(TypePlay, playbookKey, index)
}

// TaskKey builds the key of the index-th task of a task file or play
func TaskKey(parentKey string, index int) string {
	return childKey(TypeTask, parentKey, index)
}

// RoleInPlayKey builds the key of the index-th role reference of a play
func RoleInPlayKey(playKey string, index int) string {
	return childKey(TypeRoleInPlay, playKey, index)
}

// CollectionKey builds the key of a collection
func CollectionKey(name string) string {
	return fmt.Sprintf("%s %s%s%s", TypeCollection, TypeCollection, KeyDelimiter, strings.ToLower(name))
}

// RepositoryKey builds the key of a repository
func RepositoryKey(name string) string {
	return fmt.Sprintf("%s %s%s%s", TypeRepository, TypeRepository, KeyDelimiter, strings.ToLower(name))
}

func childKey(t ObjectType, parentKey string, index int) string {
	return fmt.Sprintf("%s %s%s%s%s[%d]", t, Payload(parentKey), ObjectDelimiter, t, KeyDelimiter, index)
}

// DetectType returns the object type encoded in the key, or "" if the key
// has no known type word
func DetectType(key string) ObjectType {
	idx := strings.Index(key, " ")
	if idx <= 0 {
		return ""
	}
	t := ObjectType(key[:idx])
	if !t.Valid() {
		return ""
	}
	return t
}

// Payload returns the part of the key after the type word
func Payload(key string) string {
	if idx := strings.Index(key, " "); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// DefinitionSite finds the innermost file segment ("taskfile:<path>" or
// "playbook:<path>") of a key. It returns the payload prefix preceding that
// segment (the owner ancestry, e.g. "role:web#") and the file path.
func DefinitionSite(key string, fileTypes ...ObjectType) (prefix, path string, ok bool) {
	if len(fileTypes) == 0 {
		fileTypes = []ObjectType{TypePlaybook, TypeTaskFile}
	}
	payload := Payload(key)
	parts := strings.Split(payload, ObjectDelimiter)
	for i := len(parts) - 1; i >= 0; i-- {
		for _, t := range fileTypes {
			head := string(t) + KeyDelimiter
			if strings.HasPrefix(parts[i], head) {
				prefix = strings.Join(parts[:i], ObjectDelimiter)
				if prefix != "" {
					prefix += ObjectDelimiter
				}
				return prefix, strings.TrimPrefix(parts[i], head), true
			}
		}
	}
	return "", "", false
}

// KeyName returns the last "<type>:<name>" value of the key, which is the
// fqcn for modules and roles and the path for files
func KeyName(key string) string {
	payload := Payload(key)
	last := payload
	if idx := strings.LastIndex(payload, ObjectDelimiter); idx >= 0 {
		last = payload[idx+1:]
	}
	if idx := strings.Index(last, KeyDelimiter); idx >= 0 {
		return last[idx+1:]
	}
	return last
}
