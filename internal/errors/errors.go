package errors

import (
	"fmt"
	"strings"
)

// IndexError represents a malformed or inconsistent definition key found while
// building the definition index
type IndexError struct {
	Key    string
	Type   string
	Reason string
}

// Error implements the error interface
func (e *IndexError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid %s definition: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid %s definition %q: %s", e.Type, e.Key, e.Reason)
}

// NewIndexError creates a new index error
func NewIndexError(objType, key, reason string) *IndexError {
	return &IndexError{
		Key:    key,
		Type:   objType,
		Reason: reason,
	}
}

// IndexErrorList collects every key problem of one index build so they can be
// reported together
type IndexErrorList struct {
	Errors []*IndexError
}

// Error implements the error interface
func (el *IndexErrorList) Error() string {
	if len(el.Errors) == 0 {
		return "no errors"
	}

	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}

	// Limit the message so a broken bundle doesn't flood the terminal
	maxErrors := 3
	shown := el.Errors
	if len(shown) > maxErrors {
		shown = shown[:maxErrors]
	}

	var messages []string
	for _, err := range shown {
		messages = append(messages, err.Error())
	}

	msg := strings.Join(messages, "; ")
	if len(el.Errors) > maxErrors {
		msg += fmt.Sprintf(" (and %d more)", len(el.Errors)-maxErrors)
	}
	return msg
}

// Add appends an index error to the list
func (el *IndexErrorList) Add(objType, key, reason string) {
	el.Errors = append(el.Errors, NewIndexError(objType, key, reason))
}

// HasErrors returns true if there are any errors
func (el *IndexErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// LoopSourceError is returned when a task's loop value has a shape that cannot
// be expanded into iterations. It only invalidates the task it belongs to.
type LoopSourceError struct {
	TaskKey string
	Kind    string
}

// Error implements the error interface
func (e *LoopSourceError) Error() string {
	return fmt.Sprintf("task %q: unsupported loop source of type %s", e.TaskKey, e.Kind)
}

// NewLoopSourceError creates a new loop source error
func NewLoopSourceError(taskKey string, value any) *LoopSourceError {
	return &LoopSourceError{
		TaskKey: taskKey,
		Kind:    fmt.Sprintf("%T", value),
	}
}

// StoreError wraps a failure of the knowledge store
type StoreError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("knowledge store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("knowledge store %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new store error
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// LoadError represents a definitions file that could not be read or decoded
type LoadError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load definitions from '%s': %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new load error
func NewLoadError(path string, err error) *LoadError {
	return &LoadError{
		Path: path,
		Err:  err,
	}
}

// ConfigError represents an invalid workspace configuration value that should
// not show usage
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config field '%s': %s", e.Field, e.Message)
}

// NewConfigError creates a new config error
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}
