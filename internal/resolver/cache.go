package resolver

import (
	"strings"

	"github.com/ansible/ansible-risk-insight-sub000/internal/index"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// Kind is the kind of reference being resolved
type Kind string

// Reference kinds
const (
	KindModule   Kind = "module"
	KindRole     Kind = "role"
	KindTaskFile Kind = "taskfile"
	KindPlaybook Kind = "playbook"
)

// Request describes one reference to resolve
type Request struct {
	Kind Kind
	Name string
	// CallerKey is the key of the task or play holding the reference
	CallerKey         string
	OwnCollection     string
	CollectionsInPlay []string
}

// MemoKey returns the cache key of the request. Requests that are bound to
// resolve identically share a memo key.
func (r Request) MemoKey() string {
	var scope string
	switch r.Kind {
	case KindRole:
		scope = r.OwnCollection + "|" + strings.Join(r.CollectionsInPlay, ",")
	case KindTaskFile:
		scope = callerSite(r.CallerKey)
	case KindPlaybook:
		scope = callerSite(r.CallerKey, model.TypePlaybook)
	}
	return string(r.Kind) + "\x00" + r.Name + "\x00" + scope
}

// Cache memoizes resolutions for one builder run. It is not safe for
// concurrent use; every scan unit owns its own cache.
type Cache struct {
	idx     *index.Index
	entries map[string]string
	hits    int
	misses  int
}

// NewCache creates an empty cache over an index
func NewCache(idx *index.Index) *Cache {
	return &Cache{
		idx:     idx,
		entries: make(map[string]string),
	}
}

// Resolve returns the resolved key ("" when unresolved) and whether the
// result came from the cache
func (c *Cache) Resolve(req Request) (string, bool) {
	memo := req.MemoKey()
	if key, ok := c.entries[memo]; ok {
		c.hits++
		return key, true
	}
	c.misses++

	var key string
	switch req.Kind {
	case KindModule:
		key = ResolveModule(req.Name, c.idx)
	case KindRole:
		key = ResolveRole(req.Name, c.idx, req.OwnCollection, req.CollectionsInPlay)
	case KindTaskFile:
		key = ResolveTaskfile(req.Name, c.idx, req.CallerKey)
	case KindPlaybook:
		key = ResolvePlaybook(req.Name, c.idx, req.CallerKey)
	}
	c.entries[memo] = key
	return key, false
}

// Forget drops every cached miss. Called after new definitions are merged into
// the index so that earlier misses can be retried.
func (c *Cache) Forget() {
	for k, v := range c.entries {
		if v == "" {
			delete(c.entries, k)
		}
	}
}

// Stats returns the number of cache hits and misses
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
