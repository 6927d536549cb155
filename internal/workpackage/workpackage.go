// Package workpackage loads the external workpackage descriptors and
// validates user-supplied parameters against a workpackage's declared
// schema. Descriptors are consumed, not owned: their JSON format is fixed by
// the repository's automation surface.
package workpackage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ParamType is the declared type of a workpackage parameter.
type ParamType string

const (
	ParamNumber ParamType = "Number"
	ParamString ParamType = "String"
)

// ParamSpec declares one parameter: its type and an optional default.
// Default is the raw JSON value; it is coerced like user input.
type ParamSpec struct {
	Type    ParamType       `json:"type"`
	Default json.RawMessage `json:"default,omitempty"`
}

// HasDefault reports whether the spec declares a default value.
func (s ParamSpec) HasDefault() bool { return len(s.Default) > 0 }

// Workpackage is a named, parameterized ordered sequence of transform
// operations. Immutable once loaded.
type Workpackage struct {
	ID           string               `json:"id"`
	Label        string               `json:"label"`
	CommitResult bool                 `json:"commitResult"`
	Scripts      []string             `json:"scripts"`
	Params       map[string]ParamSpec `json:"params,omitempty"`
}

// Load reads a JSON list of workpackage descriptors.
//
// The loader is strict the same way the rest of the repo is: unknown fields
// and trailing data are errors, so a descriptor that drifts from the format
// fails at load rather than silently diverging at dispatch.
func Load(fs billy.Filesystem, path string) ([]Workpackage, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read workpackages: %w", err)
	}
	return Decode(data)
}

// Decode parses a JSON list of workpackage descriptors.
func Decode(data []byte) ([]Workpackage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var wps []Workpackage
	if err := dec.Decode(&wps); err != nil {
		return nil, fmt.Errorf("parse workpackages json: %w", err)
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("parse workpackages json: trailing data")
		}
		return nil, fmt.Errorf("parse workpackages json: %w", err)
	}

	for i, wp := range wps {
		if wp.ID == "" {
			return nil, fmt.Errorf("workpackage %d: missing id", i)
		}
		if len(wp.Scripts) == 0 {
			return nil, fmt.Errorf("workpackage %q: missing scripts", wp.ID)
		}
		for name, spec := range wp.Params {
			if spec.Type != ParamNumber && spec.Type != ParamString {
				return nil, fmt.Errorf("workpackage %q: param %q has unknown type %q", wp.ID, name, spec.Type)
			}
		}
	}
	return wps, nil
}

// Find returns the workpackage with the given id.
func Find(wps []Workpackage, id string) (Workpackage, error) {
	for _, wp := range wps {
		if wp.ID == id {
			return wp, nil
		}
	}
	return Workpackage{}, fmt.Errorf("workpackage id %q not found", id)
}
