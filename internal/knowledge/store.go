package knowledge

import (
	"path"
	"strings"
	"sync"

	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// Store answers reference lookups from registered findings. Matches are
// ordered newest registration first.
type Store interface {
	SearchModule(name string) ([]Match, error)
	SearchRole(name string) ([]Match, error)
	SearchTaskfile(name, callerPath, callerKey string) ([]Match, error)
	Register(f *Findings) error
}

// taskfilePaths returns the paths a task file reference may be registered
// under: relative to the caller's file, then as written
func taskfilePaths(name, callerPath, callerKey string) []string {
	if callerPath == "" {
		_, callerPath, _ = model.DefinitionSite(callerKey)
	}
	var paths []string
	if callerPath != "" {
		paths = append(paths, path.Clean(path.Join(path.Dir(callerPath), name)))
	}
	if p := path.Clean(name); len(paths) == 0 || paths[0] != p {
		paths = append(paths, p)
	}
	for i, p := range paths {
		paths[i] = strings.ToLower(p)
	}
	return paths
}

// MemoryStore keeps findings in process. It is safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex
	// newest last
	findings []*Findings
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Register adds f, replacing earlier findings of the same target version
func (s *MemoryStore) Register(f *Findings) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Metadata.Hash == "" {
		hash, err := f.Hash()
		if err != nil {
			return err
		}
		f.Metadata.Hash = hash
	}
	f.Definitions()

	s.mu.Lock()
	defer s.mu.Unlock()
	key := f.StoreKey()
	kept := s.findings[:0]
	for _, existing := range s.findings {
		if existing.StoreKey() != key {
			kept = append(kept, existing)
		}
	}
	s.findings = append(kept, f)
	return nil
}

// SearchModule finds modules by fqcn, or by short name when name has no dot
func (s *MemoryStore) SearchModule(name string) ([]Match, error) {
	return s.search(model.TypeModule, name), nil
}

// SearchRole finds roles by fqcn, or by short name when name has no dot
func (s *MemoryStore) SearchRole(name string) ([]Match, error) {
	return s.search(model.TypeRole, name), nil
}

// SearchTaskfile finds task files by path
func (s *MemoryStore) SearchTaskfile(name, callerPath, callerKey string) ([]Match, error) {
	return s.search(model.TypeTaskFile, taskfilePaths(name, callerPath, callerKey)...), nil
}

func (s *MemoryStore) search(kind model.ObjectType, names ...string) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Match
	for i := len(s.findings) - 1; i >= 0; i-- {
		out = append(out, searchFindings(s.findings[i], kind, names...)...)
	}
	return out
}

// Len returns the number of registered findings
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.findings)
}
