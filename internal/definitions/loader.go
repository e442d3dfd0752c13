// Package definitions reads and writes definition bundles: the typed object
// lists and the mappings table produced for one scanned target.
package definitions

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-risk-insight-sub000/internal/errors"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// RootFile is the bundle of the scanned target inside a definitions directory
const RootFile = "root.yml"

// ExtDir holds the bundles of the target's dependencies
const ExtDir = "ext"

// Bundle is the serialized form of model.Definitions. JSON input is accepted
// as well since it is valid YAML.
type Bundle struct {
	Mappings     model.Mappings      `yaml:"mappings" json:"mappings"`
	Collections  []*model.Collection `yaml:"collections,omitempty" json:"collections,omitempty"`
	Roles        []*model.Role       `yaml:"roles,omitempty" json:"roles,omitempty"`
	TaskFiles    []*model.TaskFile   `yaml:"taskfiles,omitempty" json:"taskfiles,omitempty"`
	Modules      []*model.Module     `yaml:"modules,omitempty" json:"modules,omitempty"`
	Playbooks    []*model.Playbook   `yaml:"playbooks,omitempty" json:"playbooks,omitempty"`
	Plays        []*model.Play       `yaml:"plays,omitempty" json:"plays,omitempty"`
	Tasks        []*model.Task       `yaml:"tasks,omitempty" json:"tasks,omitempty"`
	Repositories []*model.Repository `yaml:"repositories,omitempty" json:"repositories,omitempty"`
}

// Definitions converts the bundle into indexed object lists
func (b *Bundle) Definitions() *model.Definitions {
	defs := model.NewDefinitions()
	if b == nil {
		return defs
	}
	defs.Mappings = b.Mappings
	for _, o := range b.Collections {
		defs.Add(o)
	}
	for _, o := range b.Roles {
		defs.Add(o)
	}
	for _, o := range b.TaskFiles {
		defs.Add(o)
	}
	for _, o := range b.Modules {
		defs.Add(o)
	}
	for _, o := range b.Playbooks {
		defs.Add(o)
	}
	for _, o := range b.Plays {
		defs.Add(o)
	}
	for _, o := range b.Tasks {
		defs.Add(o)
	}
	for _, o := range b.Repositories {
		defs.Add(o)
	}
	return defs
}

// FromDefinitions builds the serializable form of defs
func FromDefinitions(defs *model.Definitions) *Bundle {
	b := &Bundle{}
	if defs == nil {
		return b
	}
	b.Mappings = defs.Mappings
	for _, l := range defs.Lists() {
		for _, o := range l.Items() {
			switch obj := o.(type) {
			case *model.Collection:
				b.Collections = append(b.Collections, obj)
			case *model.Role:
				b.Roles = append(b.Roles, obj)
			case *model.TaskFile:
				b.TaskFiles = append(b.TaskFiles, obj)
			case *model.Module:
				b.Modules = append(b.Modules, obj)
			case *model.Playbook:
				b.Playbooks = append(b.Playbooks, obj)
			case *model.Play:
				b.Plays = append(b.Plays, obj)
			case *model.Task:
				b.Tasks = append(b.Tasks, obj)
			case *model.Repository:
				b.Repositories = append(b.Repositories, obj)
			}
		}
	}
	return b
}

// Decode reads one bundle
func Decode(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := yaml.NewDecoder(r).Decode(&b); err != nil {
		if err == io.EOF {
			return &b, nil
		}
		return nil, err
	}
	return &b, nil
}

// Encode writes b as YAML
func Encode(w io.Writer, b *Bundle) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return err
	}
	return enc.Close()
}

// Marshal returns the YAML form of b
func Marshal(b *Bundle) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads a bundle file
func Load(path string) (*model.Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewLoadError(path, err)
	}
	defer func() { _ = f.Close() }()

	b, err := Decode(f)
	if err != nil {
		return nil, errors.NewLoadError(path, err)
	}
	return b.Definitions(), nil
}

// LoadDir reads the root bundle of a definitions directory and merges every
// bundle found under its ext directory. A missing ext directory is not an
// error.
func LoadDir(dir string) (root, ext *model.Definitions, err error) {
	root, err = Load(filepath.Join(dir, RootFile))
	if err != nil {
		return nil, nil, err
	}

	ext = model.NewDefinitions()
	files, err := bundleFiles(filepath.Join(dir, ExtDir))
	if err != nil {
		return nil, nil, errors.NewLoadError(filepath.Join(dir, ExtDir), err)
	}
	for _, path := range files {
		defs, err := Load(path)
		if err != nil {
			return nil, nil, err
		}
		ext.Merge(defs)
	}
	return root, ext, nil
}

// Save writes defs as a bundle file, creating parent directories
func Save(path string, defs *model.Definitions) error {
	data, err := Marshal(FromDefinitions(defs))
	if err != nil {
		return fmt.Errorf("failed to encode definitions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// IsBundleFile reports whether name has a bundle file extension
func IsBundleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}

// bundleFiles lists the bundle files below dir in lexical order
func bundleFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && IsBundleFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
