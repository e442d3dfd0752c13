package model

import (
	"strconv"
	"strings"
)

// Provenance identifies where an externally supplied object came from
type Provenance struct {
	Type    string `yaml:"type" json:"type"`
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
	Hash    string `yaml:"hash,omitempty" json:"hash,omitempty"`
}

// Candidate is a possible resolution of a task's executable found only in the
// knowledge store
type Candidate struct {
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	Provenance Provenance `json:"provenance"`
}

// ResolvedVariable is a variable discovered while resolving a task's options
type ResolvedVariable struct {
	Name  string       `json:"name"`
	Value any          `json:"value"`
	Type  VariableType `json:"type"`
}

// LoopBinding is the set of loop variables of one iteration
type LoopBinding struct {
	Values map[string]any `json:"values"`
	// Source is the variable the iteration was drawn from, if any
	Source     string       `json:"source,omitempty"`
	SourceType VariableType `json:"source_type"`
}

// VariableAnnotation is the result of resolving the module options of a task
// call against its variable context
type VariableAnnotation struct {
	// ResolvedOptions holds one option set per loop iteration
	ResolvedOptions []any              `json:"resolved_options"`
	Loop            []LoopBinding      `json:"loop,omitempty"`
	Variables       []ResolvedVariable `json:"variables,omitempty"`
	// MutableVars maps an option key to the mutable variables that influenced
	// it. The key "" stands for inline string options.
	MutableVars   map[string][]string       `json:"mutable_vars,omitempty"`
	UsedVariables map[string]ResolveHistory `json:"used_variables,omitempty"`
	Error         string                    `json:"error,omitempty"`
}

// HasMutableOptions reports whether any option depends on a mutable variable
func (a *VariableAnnotation) HasMutableOptions() bool {
	if a == nil {
		return false
	}
	for _, names := range a.MutableVars {
		if len(names) > 0 {
			return true
		}
	}
	return false
}

// CallObject is one visit of a definition object in a call tree. The same
// definition may be visited many times; every visit gets its own CallObject.
type CallObject struct {
	Key        string `json:"key"`
	Spec       Object `json:"-"`
	SpecKey    string `json:"spec_key"`
	CalledFrom string `json:"called_from,omitempty"`
	Depth      int    `json:"depth"`
	NodeID     string `json:"node_id"`

	// Task calls only
	ResolvedName       string              `json:"resolved_name,omitempty"`
	PossibleCandidates []Candidate         `json:"possible_candidates,omitempty"`
	Annotation         *VariableAnnotation `json:"annotation,omitempty"`
}

// NewCallObject creates the call object of a visit to spec from caller. index
// is the position of spec among the caller's children.
func NewCallObject(spec Object, caller *CallObject, index int) *CallObject {
	c := &CallObject{
		Spec:    spec,
		SpecKey: spec.ObjectKey(),
		NodeID:  "0",
	}

	callerOnly := "None"
	if caller != nil {
		callerOnly = caller.Key
		if idx := strings.Index(callerOnly, " FROM "); idx >= 0 {
			callerOnly = callerOnly[:idx]
		}
		c.CalledFrom = caller.Key
		c.Depth = caller.Depth + 1
		c.NodeID = caller.NodeID + "." + strconv.Itoa(index)
	}
	c.Key = CallTypeName(spec.ObjectType()) + " " + Payload(spec.ObjectKey()) + " FROM " + callerOnly
	return c
}

// CallTypeName returns the call object type name for an object type
func CallTypeName(t ObjectType) string {
	switch t {
	case TypeModule:
		return "ModuleCall"
	case TypeCollection:
		return "CollectionCall"
	case TypeRole:
		return "RoleCall"
	case TypeRoleInPlay:
		return "RoleInPlayCall"
	case TypeTaskFile:
		return "TaskFileCall"
	case TypeTask:
		return "TaskCall"
	case TypePlay:
		return "PlayCall"
	case TypePlaybook:
		return "PlaybookCall"
	case TypeRepository:
		return "RepositoryCall"
	}
	return "Call"
}

// Task returns the task spec of a task call
func (c *CallObject) Task() (*Task, bool) {
	t, ok := c.Spec.(*Task)
	return t, ok
}

// IsDescendantOf reports whether the node id of c strictly extends the node
// id of other
func (c *CallObject) IsDescendantOf(other *CallObject) bool {
	return strings.HasPrefix(c.NodeID, other.NodeID+".")
}
