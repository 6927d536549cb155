package mei

import (
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5"
)

// ErrSerialization reports a failure writing a document back to storage.
var ErrSerialization = fmt.Errorf("serialization failed")

// Write serializes the document back to its source path.
//
// The write is atomic: the serialized bytes go to a temp file in the target
// directory which is then renamed over the original, so a failure at any
// point leaves the on-disk document untouched. The XML declaration and any
// xml-model / xml-stylesheet processing instructions survive verbatim
// because they are tokens of the parsed tree.
func Write(fs billy.Filesystem, d *Document) error {
	data, err := d.XML.WriteToBytes()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSerialization, d.Path, err)
	}

	dir := path.Dir(d.Path)
	tmp, err := fs.TempFile(dir, path.Base(d.Path)+".tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSerialization, d.Path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSerialization, d.Path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSerialization, d.Path, err)
	}
	if err := fs.Rename(tmpName, d.Path); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSerialization, d.Path, err)
	}
	return nil
}
