package knowledge

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	solodb "github.com/phillarmonic/SoloDB"
	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-risk-insight-sub000/internal/errors"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// Index blob key prefixes
const (
	indexModule      = "index:module:"
	indexModuleShort = "index:module-short:"
	indexRole        = "index:role:"
	indexRoleShort   = "index:role-short:"
	indexTaskfile    = "index:taskfile:"
)

// DefaultLRUSize is the number of decoded findings kept in memory
const DefaultLRUSize = 256

// ref points from an index blob to one object of registered findings
type ref struct {
	Findings   string    `yaml:"findings"`
	Key        string    `yaml:"key"`
	Registered time.Time `yaml:"registered"`
}

// SoloOptions configures a SoloStore
type SoloOptions struct {
	Path      string
	Retention time.Duration
	LRUSize   int
}

// SoloStore persists findings and their name indices in a SoloDB file
type SoloStore struct {
	db        *solodb.DB
	retention time.Duration
	decoded   *lru.Cache[string, *Findings]
	locks     keyedMutex
	now       func() time.Time
}

// Stats describes the store file
type Stats struct {
	Keys        int
	FileBytes   int64
	LiveRecords int64
	Cached      int
}

// OpenSoloStore opens or creates the store file
func OpenSoloStore(opts SoloOptions) (*SoloStore, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("knowledge store path is empty")
	}
	if opts.LRUSize <= 0 {
		opts.LRUSize = DefaultLRUSize
	}
	if opts.Retention <= 0 {
		opts.Retention = 10 * 365 * 24 * time.Hour
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create knowledge store directory: %w", err)
	}

	db, err := solodb.Open(solodb.Options{
		Path:       opts.Path,
		Durability: solodb.SyncBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}

	decoded, err := lru.New[string, *Findings](opts.LRUSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create findings cache: %w", err)
	}

	return &SoloStore{
		db:        db,
		retention: opts.Retention,
		decoded:   decoded,
		now:       time.Now,
	}, nil
}

// Register stores f and adds its modules, roles and task files to the name
// indices. Registering the same target version again replaces it.
func (s *SoloStore) Register(f *Findings) error {
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

	fkey := f.StoreKey()
	unlock := s.locks.Lock(fkey)
	defer unlock()

	data, err := EncodeFindings(f)
	if err != nil {
		return err
	}
	if err := s.put(fkey, data); err != nil {
		return err
	}
	s.decoded.Remove(fkey)

	now := s.now()
	for indexKey, objKeys := range indexEntries(f) {
		for _, objKey := range objKeys {
			if err := s.addRef(indexKey, ref{Findings: fkey, Key: objKey, Registered: now}); err != nil {
				return err
			}
		}
	}
	return nil
}

// indexEntries lists the object keys of f per index blob key
func indexEntries(f *Findings) map[string][]string {
	entries := make(map[string][]string)
	defs := f.Definitions()
	for _, obj := range defs.Modules.Items() {
		m := obj.(*model.Module)
		entries[indexModule+strings.ToLower(m.FQCN)] = append(entries[indexModule+strings.ToLower(m.FQCN)], m.Key)
		if m.Name != "" {
			entries[indexModuleShort+m.Name] = append(entries[indexModuleShort+m.Name], m.Key)
		}
	}
	for _, obj := range defs.Roles.Items() {
		r := obj.(*model.Role)
		entries[indexRole+strings.ToLower(r.FQCN)] = append(entries[indexRole+strings.ToLower(r.FQCN)], r.Key)
		if r.Name != "" {
			entries[indexRoleShort+r.Name] = append(entries[indexRoleShort+r.Name], r.Key)
		}
	}
	for _, obj := range defs.TaskFiles.Items() {
		tf := obj.(*model.TaskFile)
		k := indexTaskfile + strings.ToLower(tf.DefinedIn)
		entries[k] = append(entries[k], tf.Key)
	}
	return entries
}

// addRef puts r at the front of an index blob, dropping older refs to the
// same object of the same findings
func (s *SoloStore) addRef(indexKey string, r ref) error {
	unlock := s.locks.Lock(indexKey)
	defer unlock()

	refs, err := s.refs(indexKey)
	if err != nil {
		return err
	}
	updated := []ref{r}
	for _, existing := range refs {
		if existing.Findings == r.Findings && existing.Key == r.Key {
			continue
		}
		updated = append(updated, existing)
	}

	data, err := yaml.Marshal(updated)
	if err != nil {
		return errors.NewStoreError("encode", indexKey, err)
	}
	return s.put(indexKey, data)
}

func (s *SoloStore) refs(indexKey string) ([]ref, error) {
	data, ok, err := s.get(indexKey)
	if err != nil || !ok {
		return nil, err
	}
	var refs []ref
	if err := yaml.Unmarshal(data, &refs); err != nil {
		return nil, errors.NewStoreError("decode", indexKey, err)
	}
	return refs, nil
}

// SearchModule finds modules by fqcn, or by short name when name has no dot
func (s *SoloStore) SearchModule(name string) ([]Match, error) {
	if strings.Contains(name, ".") {
		return s.search(indexModule + strings.ToLower(name))
	}
	return s.search(indexModuleShort + name)
}

// SearchRole finds roles by fqcn, or by short name when name has no dot
func (s *SoloStore) SearchRole(name string) ([]Match, error) {
	if strings.Contains(name, ".") {
		return s.search(indexRole + strings.ToLower(name))
	}
	return s.search(indexRoleShort + name)
}

// SearchTaskfile finds task files by path
func (s *SoloStore) SearchTaskfile(name, callerPath, callerKey string) ([]Match, error) {
	keys := make([]string, 0, 2)
	for _, p := range taskfilePaths(name, callerPath, callerKey) {
		keys = append(keys, indexTaskfile+p)
	}
	return s.search(keys...)
}

func (s *SoloStore) search(indexKeys ...string) ([]Match, error) {
	var out []Match
	for _, indexKey := range indexKeys {
		refs, err := s.refs(indexKey)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			f, err := s.findings(r.Findings)
			if err != nil {
				return nil, err
			}
			if f == nil {
				continue
			}
			if m, ok := newMatch(f, r.Key); ok {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// Findings returns the findings of one target version, or nil if none are
// registered
func (s *SoloStore) Findings(p model.Provenance) (*Findings, error) {
	return s.findings(findingsKey(p))
}

func (s *SoloStore) findings(key string) (*Findings, error) {
	if f, ok := s.decoded.Get(key); ok {
		return f, nil
	}
	data, ok, err := s.get(key)
	if err != nil || !ok {
		return nil, err
	}
	f, err := DecodeFindings(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewStoreError("decode", key, err)
	}
	f.Definitions()
	s.decoded.Add(key, f)
	return f, nil
}

// get reads a blob. Missing and expired blobs are reported as not found.
func (s *SoloStore) get(key string) ([]byte, bool, error) {
	rc, _, _, err := s.db.GetBlob(key)
	if err == solodb.ErrNotFound || err == solodb.ErrExpired {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewStoreError("read", key, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, errors.NewStoreError("read", key, err)
	}
	return data, true, nil
}

func (s *SoloStore) put(key string, data []byte) error {
	expiry := s.now().Add(s.retention)
	if err := s.db.SetBlob(key, bytes.NewReader(data), int64(len(data)), expiry); err != nil {
		return errors.NewStoreError("write", key, err)
	}
	return nil
}

// Delete removes the findings of one target version. Index refs to it are
// skipped on lookup.
func (s *SoloStore) Delete(p model.Provenance) error {
	key := findingsKey(p)
	unlock := s.locks.Lock(key)
	defer unlock()

	s.decoded.Remove(key)
	if err := s.db.Delete(key); err != nil {
		return errors.NewStoreError("delete", key, err)
	}
	return nil
}

// Stats returns store file statistics
func (s *SoloStore) Stats() Stats {
	dbStats := s.db.Stats()
	return Stats{
		Keys:        dbStats.Keys,
		FileBytes:   dbStats.FileBytes,
		LiveRecords: int64(dbStats.LiveRecords),
		Cached:      s.decoded.Len(),
	}
}

// Compact reclaims the space of replaced and expired blobs
func (s *SoloStore) Compact() error {
	return s.db.Compact()
}

// Close closes the store file
func (s *SoloStore) Close() error {
	return s.db.Close()
}

// keyedMutex serializes work per key
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the lock of key and returns its release function
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
