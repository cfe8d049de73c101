package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// DefaultFormat is the output format used when none is configured.
const DefaultFormat = "text"

// Factory creates a Logger writing to w.
type Factory func(w io.Writer, opts Options) (Logger, error)

// Registry maps output format names to logger factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with all built-in formats.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("text", func(w io.Writer, opts Options) (Logger, error) {
		return NewTextLogger(w, opts), nil
	})
	r.Register("json", func(w io.Writer, opts Options) (Logger, error) {
		return NewJSONLogger(w, opts), nil
	})
	r.Register("markdown", func(w io.Writer, opts Options) (Logger, error) {
		return NewMarkdownLogger(w, opts), nil
	})
	r.Register("csv", func(w io.Writer, opts Options) (Logger, error) {
		return NewCSVLogger(w, opts), nil
	})
	r.Register("xlsx", func(w io.Writer, opts Options) (Logger, error) {
		return NewXLSXLogger(w, opts), nil
	})
	r.Register("sql", func(_ io.Writer, opts Options) (Logger, error) {
		return NewSQLLogger(opts)
	})
	r.Register("none", func(io.Writer, Options) (Logger, error) {
		return NoneLogger{}, nil
	})
	return r
}

// Register adds or replaces a format. Names are case-insensitive.
func (r *Registry) Register(name string, f Factory) {
	r.factories[strings.ToLower(name)] = f
}

// Names returns the registered format names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Has reports whether a format is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[strings.ToLower(name)]
	return ok
}

// New creates the logger registered under name.
func (r *Registry) New(name string, w io.Writer, opts Options) (Logger, error) {
	f, ok := r.factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownFormat, name, strings.Join(r.Names(), ", "))
	}
	return f(w, opts)
}
