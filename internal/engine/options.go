package engine

import (
	"io"
	"os"

	"github.com/ansible/ansible-risk-insight-sub000/internal/knowledge"
)

// EngineOptions configures the engine with optional dependencies
type EngineOptions struct {
	// Output writer for progress lines (defaults to os.Stdout)
	Output io.Writer

	// Knowledge store consulted for references the definitions cannot
	// resolve (defaults to none)
	Store knowledge.Store

	// Verbose mode
	Verbose bool
}

// Option is a functional option for configuring the Engine
type Option func(*EngineOptions)

// WithOutput sets the output writer
func WithOutput(w io.Writer) Option {
	return func(o *EngineOptions) {
		o.Output = w
	}
}

// WithStore sets the knowledge store
func WithStore(s knowledge.Store) Option {
	return func(o *EngineOptions) {
		o.Store = s
	}
}

// WithVerbose sets verbose mode
func WithVerbose(verbose bool) Option {
	return func(o *EngineOptions) {
		o.Verbose = verbose
	}
}

// applyDefaults applies default values to unset options
func (opts *EngineOptions) applyDefaults() {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
}
