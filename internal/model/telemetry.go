package model

import "sort"

// ExtraRequirement is a definition a tree needed that only the knowledge store
// could supply
type ExtraRequirement struct {
	Type      ObjectType `yaml:"type" json:"type"`
	Name      string     `yaml:"name" json:"name"`
	DefinedIn Provenance `yaml:"defined_in" json:"defined_in"`
	UsedIn    string     `yaml:"used_in" json:"used_in"`
	ObjectKey string     `yaml:"key,omitempty" json:"key,omitempty"`
}

// Failures counts unresolved references by kind ("module", "role",
// "taskfile", "playbook") and name
type Failures map[string]map[string]int

// Add counts one unresolved reference
func (f Failures) Add(kind, name string) {
	if f[kind] == nil {
		f[kind] = make(map[string]int)
	}
	f[kind][name]++
}

// Count returns the tally of one reference
func (f Failures) Count(kind, name string) int {
	return f[kind][name]
}

// Total returns the number of unresolved references of every kind
func (f Failures) Total() int {
	n := 0
	for _, names := range f {
		for _, c := range names {
			n += c
		}
	}
	return n
}

// Merge adds every tally of other
func (f Failures) Merge(other Failures) {
	for kind, names := range other {
		for name, c := range names {
			if f[kind] == nil {
				f[kind] = make(map[string]int)
			}
			f[kind][name] += c
		}
	}
}

// Names returns the unresolved names of one kind in sorted order
func (f Failures) Names(kind string) []string {
	names := make([]string, 0, len(f[kind]))
	for name := range f[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cycle records an inclusion that was cut because Key was already on the
// branch leading to CallerKey
type Cycle struct {
	Key       string `yaml:"key" json:"key"`
	CallerKey string `yaml:"caller_key" json:"caller_key"`
}
