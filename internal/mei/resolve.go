package mei

import (
	"fmt"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
)

// ErrMissingContext reports that a required sibling encoding of the work is
// absent from the active document's directory.
var ErrMissingContext = fmt.Errorf("missing context document")

// ResolveContext finds the sibling encodings of the active document: every
// same-extension file in the same directory, parsed and classified, excluding
// the active file itself.
//
// Context documents are always co-located with the active document in this
// corpus. Resolution is deterministic (lexical file order) and uncached; it
// runs fresh for every pipeline run so that a run always sees current
// siblings. A sibling whose name does not follow the corpus convention is a
// hard error, not a skip: an unclassifiable encoding next to the active file
// means the directory is in an inconsistent state.
func ResolveContext(fs billy.Filesystem, activePath string) ([]*Document, error) {
	dir := path.Dir(activePath)
	ext := path.Ext(activePath)

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ext {
			continue
		}
		if path.Join(dir, e.Name()) == activePath {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]*Document, 0, len(names))
	for _, name := range names {
		doc, err := Parse(fs, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// RequireContext returns the first context document of the wanted notation
// type, or ErrMissingContext.
func RequireContext(docs []*Document, want NotationType) (*Document, error) {
	for _, d := range docs {
		if d.Notation == want {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s sibling found", ErrMissingContext, want)
}
