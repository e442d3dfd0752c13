// Package knowledge is the store of definitions collected from previously
// scanned collections and roles. The call-tree builder falls back to it when
// a reference cannot be resolved locally.
package knowledge

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-risk-insight-sub000/internal/definitions"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// Findings is everything recorded about one scanned target
type Findings struct {
	Metadata          model.Provenance         `yaml:"metadata" json:"metadata"`
	Root              *definitions.Bundle      `yaml:"root_definitions" json:"root_definitions"`
	Ext               []*definitions.Bundle    `yaml:"ext_definitions,omitempty" json:"ext_definitions,omitempty"`
	ExtraRequirements []model.ExtraRequirement `yaml:"extra_requirements,omitempty" json:"extra_requirements,omitempty"`
	ResolveFailures   model.Failures           `yaml:"resolve_failures,omitempty" json:"resolve_failures,omitempty"`

	defs *model.Definitions
}

// StoreKey returns the key the findings are persisted under
func (f *Findings) StoreKey() string {
	return findingsKey(f.Metadata)
}

func findingsKey(p model.Provenance) string {
	return strings.Join([]string{"findings", p.Type, strings.ToLower(p.Name), p.Version}, ":")
}

// Definitions returns the root definitions as indexed lists
func (f *Findings) Definitions() *model.Definitions {
	if f.defs == nil {
		f.defs = f.Root.Definitions()
	}
	return f.defs
}

// Validate checks the metadata needed to register the findings
func (f *Findings) Validate() error {
	if f.Metadata.Type == "" || f.Metadata.Name == "" {
		return fmt.Errorf("findings metadata needs a type and a name")
	}
	switch f.Metadata.Type {
	case model.TargetCollection, model.TargetRole, model.TargetProject, model.TargetPlaybook, model.TargetTaskFile:
	default:
		return fmt.Errorf("unknown findings type %q", f.Metadata.Type)
	}
	if f.Root == nil {
		return fmt.Errorf("findings for %s %s have no root definitions", f.Metadata.Type, f.Metadata.Name)
	}
	return nil
}

// Hash returns the content hash of the root definitions
func (f *Findings) Hash() (string, error) {
	data, err := definitions.Marshal(f.Root)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxh3.Hash(data), 16), nil
}

// DecodeFindings reads one findings document
func DecodeFindings(r io.Reader) (*Findings, error) {
	var f Findings
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode findings: %w", err)
	}
	return &f, nil
}

// EncodeFindings returns the YAML form of f
func EncodeFindings(f *Findings) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode findings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Match is one store hit for a reference
type Match struct {
	// Name is the fqcn of a module or role, or the path of a task file
	Name       string
	Key        string
	Object     model.Object
	Offspring  []model.Object
	Provenance model.Provenance
}

// Objects returns the matched object followed by its offspring
func (m Match) Objects() []model.Object {
	return append([]model.Object{m.Object}, m.Offspring...)
}

// Candidate converts the match to a call object candidate
func (m Match) Candidate() model.Candidate {
	return model.Candidate{Name: m.Name, Key: m.Key, Provenance: m.Provenance}
}

// newMatch builds the match of the object with key in f, or false if f has
// no such object
func newMatch(f *Findings, key string) (Match, bool) {
	defs := f.Definitions()
	obj, ok := defs.Get(key)
	if !ok {
		return Match{}, false
	}
	m := Match{Key: key, Object: obj, Provenance: f.Metadata}
	switch o := obj.(type) {
	case *model.Module:
		m.Name = o.FQCN
	case *model.Role:
		m.Name = o.FQCN
		m.Offspring = roleOffspring(defs, o)
	case *model.TaskFile:
		m.Name = o.DefinedIn
		m.Offspring = taskfileOffspring(defs, o)
	}
	return m, true
}

func roleOffspring(defs *model.Definitions, role *model.Role) []model.Object {
	var out []model.Object
	for _, key := range role.Taskfiles {
		if obj, ok := defs.Get(key); ok {
			out = append(out, obj)
			if tf, ok := obj.(*model.TaskFile); ok {
				out = append(out, taskfileOffspring(defs, tf)...)
			}
		}
	}
	for _, key := range role.Modules {
		if obj, ok := defs.Get(key); ok {
			out = append(out, obj)
		}
	}
	return out
}

func taskfileOffspring(defs *model.Definitions, tf *model.TaskFile) []model.Object {
	var out []model.Object
	for _, key := range tf.Tasks {
		if obj, ok := defs.Get(key); ok {
			out = append(out, obj)
		}
	}
	return out
}

// searchFindings returns the matches of one reference in f
func searchFindings(f *Findings, kind model.ObjectType, names ...string) []Match {
	var out []Match
	defs := f.Definitions()
	for _, obj := range defs.ListFor(kind).Items() {
		if !matchesName(obj, names) {
			continue
		}
		if m, ok := newMatch(f, obj.ObjectKey()); ok {
			out = append(out, m)
		}
	}
	return out
}

func matchesName(obj model.Object, names []string) bool {
	for _, name := range names {
		switch o := obj.(type) {
		case *model.Module:
			if strings.EqualFold(o.FQCN, name) || (!strings.Contains(name, ".") && o.Name == name) {
				return true
			}
		case *model.Role:
			if strings.EqualFold(o.FQCN, name) || (!strings.Contains(name, ".") && o.Name == name) {
				return true
			}
		case *model.TaskFile:
			if strings.EqualFold(o.DefinedIn, name) {
				return true
			}
		}
	}
	return false
}
