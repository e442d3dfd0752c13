package model

// ObjectList is an ordered collection of definition objects with key lookup.
// Adding an object whose key is already present replaces the earlier entry in
// place, so the order of first insertion is kept and the last write wins.
type ObjectList struct {
	items []Object
	index map[string]int
}

// NewObjectList creates a list holding the given objects
func NewObjectList(objs ...Object) *ObjectList {
	l := &ObjectList{index: make(map[string]int)}
	for _, o := range objs {
		l.Add(o)
	}
	return l
}

// Add inserts or replaces an object
func (l *ObjectList) Add(obj Object) {
	if obj == nil {
		return
	}
	if l.index == nil {
		l.index = make(map[string]int)
	}
	key := obj.ObjectKey()
	if i, ok := l.index[key]; ok {
		l.items[i] = obj
		return
	}
	l.index[key] = len(l.items)
	l.items = append(l.items, obj)
}

// Merge appends every object of other, following Add semantics
func (l *ObjectList) Merge(other *ObjectList) {
	if other == nil {
		return
	}
	for _, o := range other.items {
		l.Add(o)
	}
}

// FindByKey returns the object with the given key
func (l *ObjectList) FindByKey(key string) (Object, bool) {
	if l == nil || l.index == nil {
		return nil, false
	}
	i, ok := l.index[key]
	if !ok {
		return nil, false
	}
	return l.items[i], true
}

// FindByType returns all objects of the given type in list order
func (l *ObjectList) FindByType(t ObjectType) []Object {
	if l == nil {
		return nil
	}
	var out []Object
	for _, o := range l.items {
		if o.ObjectType() == t {
			out = append(out, o)
		}
	}
	return out
}

// Items returns the objects in order
func (l *ObjectList) Items() []Object {
	if l == nil {
		return nil
	}
	return l.items
}

// Len returns the number of objects
func (l *ObjectList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}
