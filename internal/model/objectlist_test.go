package model

import "testing"

func TestObjectList_AddReplacesInPlace(t *testing.T) {
	a := &Module{Name: "a", FQCN: "x.y.a", Key: ModuleKey("x.y.a", "x.y", "")}
	b := &Module{Name: "b", FQCN: "x.y.b", Key: ModuleKey("x.y.b", "x.y", "")}
	a2 := &Module{Name: "a-again", FQCN: "x.y.a", Key: a.Key}

	l := NewObjectList(a, b)
	l.Add(a2)

	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	got, ok := l.FindByKey(a.Key)
	if !ok {
		t.Fatalf("FindByKey(%q) not found", a.Key)
	}
	if got.(*Module).Name != "a-again" {
		t.Errorf("FindByKey() name = %q, want %q", got.(*Module).Name, "a-again")
	}
	if first := l.Items()[0].(*Module); first.Name != "a-again" {
		t.Errorf("Items()[0] = %q, want replaced entry to keep its position", first.Name)
	}
}

func TestObjectList_MergeAndFindByType(t *testing.T) {
	m := &Module{FQCN: "x.y.m", Key: ModuleKey("x.y.m", "x.y", "")}
	r := &Role{FQCN: "x.y.r", Key: RoleKey("x.y.r", "x.y")}

	l := NewObjectList(m)
	l.Merge(NewObjectList(r, m))

	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if roles := l.FindByType(TypeRole); len(roles) != 1 || roles[0] != Object(r) {
		t.Errorf("FindByType(role) = %v, want [%v]", roles, r)
	}
	if _, ok := l.FindByKey("role role:missing"); ok {
		t.Error("FindByKey(missing) found an object")
	}
}

func TestNilObjectList(t *testing.T) {
	var l *ObjectList
	if l.Len() != 0 || l.Items() != nil {
		t.Error("nil list should be empty")
	}
	if _, ok := l.FindByKey("x"); ok {
		t.Error("nil list should find nothing")
	}
}

func TestNewCallObject(t *testing.T) {
	play := &Play{Key: PlayKey(PlaybookKey("site.yml", "", ""), 0)}
	task := &Task{Key: TaskKey(play.Key, 3)}

	root := NewCallObject(play, nil, 0)
	child := NewCallObject(task, root, 3)

	if root.Key != "PlayCall playbook:site.yml#play:[0] FROM None" {
		t.Errorf("root.Key = %q", root.Key)
	}
	if child.Key != "TaskCall playbook:site.yml#play:[0]#task:[3] FROM PlayCall playbook:site.yml#play:[0]" {
		t.Errorf("child.Key = %q", child.Key)
	}
	if root.NodeID != "0" || child.NodeID != "0.3" {
		t.Errorf("node ids = %q, %q, want 0, 0.3", root.NodeID, child.NodeID)
	}
	if child.Depth != 1 || child.CalledFrom != root.Key {
		t.Errorf("child depth/caller = %d/%q", child.Depth, child.CalledFrom)
	}
	if !child.IsDescendantOf(root) {
		t.Error("child should descend from root")
	}
}

func TestVariableTypeOrder(t *testing.T) {
	if !(RoleDefaults < PlayVars && PlayVars < RoleVars && RoleVars < TaskVars && TaskVars < SetFacts && SetFacts < RegisteredVars && RegisteredVars < LoopVars) {
		t.Error("precedence order is broken")
	}
	if LoopVars.IsMutable() {
		t.Error("loop vars must be immutable")
	}
	if !TaskVars.IsMutable() {
		t.Error("task vars must be mutable")
	}

	var vt VariableType
	if err := vt.UnmarshalText([]byte("set_facts")); err != nil || vt != SetFacts {
		t.Errorf("UnmarshalText(set_facts) = %v, %v", vt, err)
	}
}
