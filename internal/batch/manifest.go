// Package batch drives the pipeline over many documents serially.
//
// The driver owns nothing the coordinator guarantees: each document still
// commits all-or-nothing, and the batch never retries a logic error. What
// the batch adds is partial-failure semantics across documents: one file's
// error becomes a log entry and a summary line, not an abort.
package batch

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"
)

// Manifest selects the documents of a batch run and the workpackage to apply.
type Manifest struct {
	// Roots are the directories scanned (recursively) for documents.
	Roots []string `yaml:"roots"`

	// Pattern is an optional filename filter, a Go regular expression
	// matched against the base name. Empty matches every .mei file.
	Pattern string `yaml:"pattern,omitempty"`

	// Workpackage is the id of the workpackage applied to every file.
	Workpackage string `yaml:"workpackage"`

	// Params are the user-supplied parameter values, validated per file
	// against the workpackage schema exactly like CLI -a arguments.
	Params map[string]string `yaml:"params,omitempty"`
}

// LoadManifest reads and validates a YAML batch manifest.
func LoadManifest(fs billy.Filesystem, path string) (Manifest, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest yaml: %w", err)
	}

	if len(m.Roots) == 0 {
		return Manifest{}, fmt.Errorf("manifest: roots is required")
	}
	if m.Workpackage == "" {
		return Manifest{}, fmt.Errorf("manifest: workpackage is required")
	}
	if m.Pattern != "" {
		if _, err := regexp.Compile(m.Pattern); err != nil {
			return Manifest{}, fmt.Errorf("manifest: invalid pattern: %w", err)
		}
	}
	return m, nil
}
