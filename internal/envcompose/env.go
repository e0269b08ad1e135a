// Package envcompose builds the child-process environment for a target.
//
// An Env is an immutable mapping; every layer returns a new Env and the
// inherited parent environment is never modified in place.
package envcompose

import (
	"os"
	"sort"
	"strings"
)

// Env is an immutable set of environment variables.
type Env struct {
	vars map[string]string
}

// FromEnviron builds an Env from KEY=VALUE pairs such as os.Environ().
// Later duplicates win.
func FromEnviron(environ []string) Env {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return Env{vars: vars}
}

// Get returns the value of key, or "" when unset.
func (e Env) Get(key string) string {
	return e.vars[key]
}

// Lookup returns the value of key and whether it is set.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Len returns the number of variables.
func (e Env) Len() int {
	return len(e.vars)
}

// With returns a copy of e with key set to value.
func (e Env) With(key, value string) Env {
	next := e.clone(1)
	next.vars[key] = value
	return next
}

// Without returns a copy of e with key removed.
func (e Env) Without(key string) Env {
	if _, ok := e.vars[key]; !ok {
		return e
	}
	next := e.clone(0)
	delete(next.vars, key)
	return next
}

// Merge returns a copy of e with every entry of overrides applied.
func (e Env) Merge(overrides map[string]string) Env {
	if len(overrides) == 0 {
		return e
	}
	next := e.clone(len(overrides))
	for k, v := range overrides {
		next.vars[k] = v
	}
	return next
}

// Prepend returns a copy of e where paths are placed, in order, before the
// existing value of key. An empty existing value is dropped rather than
// leaving a trailing separator.
func (e Env) Prepend(key string, paths ...string) Env {
	if len(paths) == 0 {
		return e
	}
	parts := append([]string{}, paths...)
	if current := e.vars[key]; current != "" {
		parts = append(parts, current)
	}
	return e.With(key, strings.Join(parts, string(os.PathListSeparator)))
}

// Environ returns the variables as sorted KEY=VALUE pairs.
func (e Env) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the variables.
func (e Env) Map() map[string]string {
	return e.clone(0).vars
}

func (e Env) clone(extra int) Env {
	vars := make(map[string]string, len(e.vars)+extra)
	for k, v := range e.vars {
		vars[k] = v
	}
	return Env{vars: vars}
}
