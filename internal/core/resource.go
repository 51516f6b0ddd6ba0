package core

import (
	"fmt"
)

// Resource is a value a provider operates on. It does not act on itself; it
// forwards to the active provider of its session.
type Resource interface {
	Session() *Session
	Exists() (bool, error)
}

// Diagnosable resources expose named read-only probes for introspection.
type Diagnosable interface {
	Resource
	DiagnosisMethods() []string
	DiagnosisFunc(name string) (func() (any, error), bool)
}

// Diagnose calls each named probe of r, or every declared one when items is
// empty, and collects the results. Failed probes store their error.
func Diagnose(r Diagnosable, items ...string) (map[string]any, error) {
	if len(items) == 0 {
		items = r.DiagnosisMethods()
	}
	out := make(map[string]any, len(items))
	for _, name := range items {
		fn, ok := r.DiagnosisFunc(name)
		if !ok {
			return nil, fmt.Errorf("diagnosis method %q: %w", name, ErrNotSupported)
		}
		v, err := fn()
		if err != nil {
			out[name] = err
			continue
		}
		out[name] = v
	}
	return out, nil
}
