package registry

// This file contains construction of the child process environment.

import (
	"sort"
	"strings"
)

// Variables removed so that tests never try to open a display.
var displayVariables = []string{"DISPLAY", "WAYLAND_DISPLAY"}

// Overrides applied on top of the registry env.
var fixedOverrides = map[string]string{
	"MPLBACKEND":       "agg",
	"PYTHONUNBUFFERED": "1",
}

// Environment clones base, applies the registry env and the fixed
// display/buffering overrides. The result is sorted by variable name.
func (r *Registry) Environment(base []string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}

	for key, value := range r.Env {
		env[key] = value
	}
	for _, key := range displayVariables {
		delete(env, key)
	}
	for key, value := range fixedOverrides {
		env[key] = value
	}

	out := make([]string, 0, len(env))
	for key, value := range env {
		out = append(out, key+"="+value)
	}
	sort.Strings(out)
	return out
}
