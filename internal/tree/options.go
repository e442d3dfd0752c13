package tree

import (
	"io"
	"os"

	"github.com/ansible/ansible-risk-insight-sub000/internal/resolver"
)

// BuilderOptions configures a Builder
type BuilderOptions struct {
	// Output writer for verbose progress (defaults to os.Stdout)
	Output io.Writer

	// Verbose mode reports unresolved references and store fallbacks
	Verbose bool

	// Cache of resolutions (defaults to a new cache over the index)
	Cache *resolver.Cache
}

// Option is a functional option for configuring the Builder
type Option func(*BuilderOptions)

// WithOutput sets the output writer
func WithOutput(w io.Writer) Option {
	return func(o *BuilderOptions) {
		o.Output = w
	}
}

// WithVerbose enables verbose progress output
func WithVerbose(verbose bool) Option {
	return func(o *BuilderOptions) {
		o.Verbose = verbose
	}
}

// WithCache shares a resolution cache between builders over the same index
func WithCache(c *resolver.Cache) Option {
	return func(o *BuilderOptions) {
		o.Cache = c
	}
}

func defaultOptions() *BuilderOptions {
	return &BuilderOptions{
		Output: os.Stdout,
	}
}
