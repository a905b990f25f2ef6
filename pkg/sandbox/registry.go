package sandbox

import (
	"fmt"
	"path"
	"reflect"
	"sort"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Registry errors.
var (
	ErrUnknownCapability = fmt.Errorf("capability not registered")
)

// Capability is one package a snippet may reference.
type Capability struct {
	// Name is the identifier snippets use (the import path's last element).
	Name string

	// Path is the import path granted to the interpreter.
	Path string

	symbols map[string]reflect.Value
}

// Registry is the explicit, enumerable set of capabilities available to
// snippets. It is built at startup; the sandbox resolves a snippet's free
// package references against the registry only, never against the host's
// loaded packages.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Capability)}
}

// DefaultRegistry returns a registry granting a conservative set of
// side-effect-free standard packages.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []string{
		"bytes",
		"errors",
		"fmt",
		"math",
		"regexp",
		"sort",
		"strconv",
		"strings",
		"time",
		"encoding/json",
	} {
		// These paths are all present in the interpreter's stdlib table.
		_ = r.GrantStdlib(p)
	}
	return r
}

// GrantStdlib registers a standard library package by import path.
func (r *Registry) GrantStdlib(importPath string) error {
	key := importPath + "/" + path.Base(importPath)
	symbols, ok := stdlib.Symbols[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCapability, importPath)
	}
	return r.Grant(importPath, symbols)
}

// Grant registers a capability under its import path. Host-side
// capabilities (editor bindings) are granted this way, with symbol maps
// built from real functions.
func (r *Registry) Grant(importPath string, symbols map[string]reflect.Value) error {
	name := path.Base(importPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok && existing.Path != importPath {
		return fmt.Errorf("capability name %q already bound to %s", name, existing.Path)
	}
	r.byName[name] = Capability{Name: name, Path: importPath, symbols: symbols}
	return nil
}

// GrantFuncs registers a capability from a map of named functions.
func (r *Registry) GrantFuncs(importPath string, funcs map[string]any) error {
	symbols := make(map[string]reflect.Value, len(funcs))
	for name, fn := range funcs {
		symbols[name] = reflect.ValueOf(fn)
	}
	return r.Grant(importPath, symbols)
}

// Lookup resolves a package identifier to its capability.
func (r *Registry) Lookup(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Names returns the sorted identifiers of all registered capabilities.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// exports builds the interpreter export table for the named capabilities.
func (r *Registry) exports(names []string) interp.Exports {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(interp.Exports, len(names))
	for _, name := range names {
		c, ok := r.byName[name]
		if !ok {
			continue
		}
		out[c.Path+"/"+c.Name] = c.symbols
	}
	return out
}
