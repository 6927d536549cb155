package pipeline

import (
	"fmt"

	"github.com/e-laute/meipipe/internal/mei"
	"github.com/e-laute/meipipe/internal/workpackage"
)

// TransformFunc is the contract every operation implements.
//
// A transform receives the active document, the resolved context documents
// and the validated parameters, and returns the (possibly replaced) active
// document plus a human-readable message for the run report. It must return
// a typed error rather than an inconsistent document; on error the returned
// document is ignored.
type TransformFunc func(active *mei.Document, contexts []*mei.Document, params workpackage.Params) (*mei.Document, string, error)

// Registry maps operation names (module.function-style identifiers, e.g.
// "measures.add_sb_every_n") to their implementations. Names are resolved
// through this explicit table; there is no reflective lookup.
type Registry map[string]TransformFunc

// Resolve returns the transform registered under name.
func (r Registry) Resolve(name string) (TransformFunc, error) {
	fn, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, name)
	}
	return fn, nil
}

// ValidateWorkpackage checks every step of a descriptor against the registry.
// Descriptors are validated once at load time so a run never discovers an
// unknown step halfway through a mutation sequence.
func (r Registry) ValidateWorkpackage(wp workpackage.Workpackage) error {
	for _, step := range wp.Scripts {
		if _, ok := r[step]; !ok {
			return fmt.Errorf("%w: workpackage %q names %q", ErrUnknownTransform, wp.ID, step)
		}
	}
	return nil
}
