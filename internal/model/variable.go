package model

import (
	"fmt"
)

// VariableType is the origin of a variable binding. The values are ordered by
// Ansible variable precedence: a higher value overrides a lower one.
type VariableType int

// Variable origins from lowest to highest precedence
const (
	Unknown VariableType = iota
	CommandLineValues
	RoleDefaults
	InventoryFileOrScriptGroupVars
	InventoryGroupVarsAll
	PlaybookGroupVarsAll
	InventoryGroupVarsAny
	PlaybookGroupVarsAny
	InventoryFileOrScriptHostVars
	InventoryHostVarsAny
	PlaybookHostVarsAny
	HostFacts
	PlayVars
	PlayVarsPrompt
	PlayVarsFiles
	RoleVars
	BlockVars
	TaskVars
	IncludeVars
	SetFacts
	RegisteredVars
	RoleParams
	IncludeParams
	ExtraVars
	LoopVars
)

var variableTypeNames = [...]string{
	Unknown:                        "unknown",
	CommandLineValues:              "command_line_values",
	RoleDefaults:                   "role_defaults",
	InventoryFileOrScriptGroupVars: "inventory_file_or_script_group_vars",
	InventoryGroupVarsAll:          "inventory_group_vars_all",
	PlaybookGroupVarsAll:           "playbook_group_vars_all",
	InventoryGroupVarsAny:          "inventory_group_vars_any",
	PlaybookGroupVarsAny:           "playbook_group_vars_any",
	InventoryFileOrScriptHostVars:  "inventory_file_or_script_host_vars",
	InventoryHostVarsAny:           "inventory_host_vars_any",
	PlaybookHostVarsAny:            "playbook_host_vars_any",
	HostFacts:                      "host_facts",
	PlayVars:                       "play_vars",
	PlayVarsPrompt:                 "play_vars_prompt",
	PlayVarsFiles:                  "play_vars_files",
	RoleVars:                       "role_vars",
	BlockVars:                      "block_vars",
	TaskVars:                       "task_vars",
	IncludeVars:                    "include_vars",
	SetFacts:                       "set_facts",
	RegisteredVars:                 "registered_vars",
	RoleParams:                     "role_params",
	IncludeParams:                  "include_params",
	ExtraVars:                      "extra_vars",
	LoopVars:                       "loop_vars",
}

// String returns the snake_case name of the origin
func (t VariableType) String() string {
	if t < 0 || int(t) >= len(variableTypeNames) {
		return fmt.Sprintf("variable_type(%d)", int(t))
	}
	return variableTypeNames[t]
}

// MarshalText renders the origin by name in JSON and YAML output
func (t VariableType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses an origin name
func (t *VariableType) UnmarshalText(text []byte) error {
	for i, name := range variableTypeNames {
		if name == string(text) {
			*t = VariableType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown variable type %q", string(text))
}

// IsMutable reports whether a value of this origin can be influenced from
// outside the analyzed content. Only loop variables are fixed by the task.
func (t VariableType) IsMutable() bool {
	return t != LoopVars
}

// Variable records that a name was bound to a value at some precedence by
// the object with the setter key
type Variable struct {
	Name   string       `json:"name"`
	Value  any          `json:"value"`
	Type   VariableType `json:"type"`
	Setter string       `json:"setter"`
}

// HistoryEntry is one step of a variable resolution
type HistoryEntry struct {
	Value any          `json:"value"`
	Type  VariableType `json:"type"`
}

// ResolveHistory records every name visited while resolving a variable, so
// that self-referencing templates terminate
type ResolveHistory map[string]HistoryEntry

// Copy returns a shallow copy of the history
func (h ResolveHistory) Copy() ResolveHistory {
	c := make(ResolveHistory, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}
