package mei

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Document wraps one parsed MEI encoding together with the notation type
// derived from its filename. A Document belongs to a single pipeline run;
// it is handed from step to step by value (pointer moved, never aliased into
// shared state) and discarded when the run ends.
type Document struct {
	// Path is the location the document was parsed from, interpreted
	// within the filesystem it was loaded through.
	Path string

	// Filename is the base name without extension (the stem).
	Filename string

	// Notation is the classification derived from Filename.
	Notation NotationType

	// XML is the parsed element tree, including the XML declaration and
	// any xml-model / xml-stylesheet processing instructions.
	XML *etree.Document
}

// Root returns the document's root element, or nil for an empty tree.
func (d *Document) Root() *etree.Element {
	if d == nil || d.XML == nil {
		return nil
	}
	return d.XML.Root()
}

// Parse reads and wraps the MEI file at p.
func Parse(fs billy.Filesystem, p string) (*Document, error) {
	data, err := util.ReadFile(fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return ParseBytes(p, data)
}

// ParseBytes wraps already-read file content. The path is still required
// because notation typing comes from the filename.
func ParseBytes(p string, data []byte) (*Document, error) {
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	notation, err := ClassifyStem(stem)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse %s: no root element", p)
	}

	return &Document{
		Path:     p,
		Filename: stem,
		Notation: notation,
		XML:      doc,
	}, nil
}

// Measures returns the document's flat measure sequence in document order.
func (d *Document) Measures() []*etree.Element {
	return d.Root().FindElements("//measure")
}

// LastMeasureNumber returns the @n of the document's last measure.
// Measure numbers are a sequence, not necessarily contiguous (split and
// pickup measures share or skip numbers), so only the final value is a
// meaningful document-level identity.
func (d *Document) LastMeasureNumber() (string, error) {
	measures := d.Measures()
	if len(measures) == 0 {
		return "", fmt.Errorf("%s: no measures", d.Filename)
	}
	n := measures[len(measures)-1].SelectAttrValue("n", "")
	if n == "" {
		return "", fmt.Errorf("%s: last measure has no @n", d.Filename)
	}
	return n, nil
}

// MeterUnit returns the denominator of the document's declared meter
// (the @unit of the first meterSig), defaulting to 4 when the document
// declares none. Every document carries exactly one declared meter unit.
func (d *Document) MeterUnit() int {
	sig := d.Root().FindElement("//meterSig")
	if sig == nil {
		return 4
	}
	unit, err := strconv.Atoi(sig.SelectAttrValue("unit", "4"))
	if err != nil || unit <= 0 {
		return 4
	}
	return unit
}
