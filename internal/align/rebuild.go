package align

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/e-laute/meipipe/internal/mei"
	"github.com/e-laute/meipipe/internal/pipeline"
)

var (
	// ErrSurfaceSectionMismatch reports that the active document declares a
	// different number of facsimile pages than the evidence has boundaries.
	ErrSurfaceSectionMismatch = errors.New("surface/section count mismatch")

	// ErrSectionMisalignment reports that the active document's measures
	// could not be partitioned onto the evidence boundaries.
	ErrSectionMisalignment = errors.New("section misalignment")
)

// Run re-partitions the active document's single monolithic section into one
// section per physical source page, using evidence gathered from the context
// document. The gathering mode follows the context's notation granularity.
func Run(active, ctx *mei.Document) (int, error) {
	var infos []SectionInfo
	var err error
	if ctx.Notation.Diplomatic() {
		infos, err = GatherFromDiplomatic(ctx)
	} else {
		infos, err = GatherFromEdition(active, ctx)
	}
	if err != nil {
		return 0, err
	}
	if err := Rebuild(active, infos); err != nil {
		return 0, err
	}
	return len(infos), nil
}

// Rebuild replaces the active document's monolithic section with one section
// per SectionInfo entry, each keyed by folio label and linked to the
// corresponding facsimile page.
//
// The partition of the section's flat child list is planned first, without
// mutating anything; only a fully consistent plan is applied. Hence the
// failure semantics: either the old section is atomically swapped for the
// new ones, or an error is returned and the tree is untouched.
func Rebuild(active *mei.Document, infos []SectionInfo) error {
	if len(infos) == 0 {
		return pipeline.Preconditionf("no section evidence for %s", active.Filename)
	}

	surfaces := active.Root().FindElements("//facsimile/surface")
	if len(surfaces) != len(infos) {
		return fmt.Errorf("%w: %s declares %d surfaces, evidence has %d sections",
			ErrSurfaceSectionMismatch, active.Filename, len(surfaces), len(infos))
	}
	surfaceIDs := make([]string, len(surfaces))
	for i, s := range surfaces {
		id := s.SelectAttrValue("xml:id", "")
		if id == "" {
			return pipeline.Preconditionf("surface %d in %s has no xml:id", i+1, active.Filename)
		}
		surfaceIDs[i] = id
	}

	section := active.Root().FindElement("//section")
	if section == nil {
		return pipeline.Preconditionf("%s has no section to rebuild", active.Filename)
	}

	// Plan: walk the flat child list (measures mixed with other structural
	// nodes) and decide which new section each child lands in, and which
	// measures open a page. No mutation yet.
	children := section.ChildElements()
	assign := make([]int, len(children))
	boundary := make(map[int]int) // child index -> info index it opens
	measuresIn := make([]int, len(infos))

	current := 0
	for i, child := range children {
		if child.Tag == "measure" {
			n := child.SelectAttrValue("n", "")
			if current != len(infos)-1 && n == infos[current+1].MeasureNumber {
				current++
				boundary[i] = current
			}
			measuresIn[current]++
		}
		assign[i] = current
	}
	if current != len(infos)-1 {
		return fmt.Errorf("%w: %s ran out of measures at section %q (%d of %d)",
			ErrSectionMisalignment, active.Filename, infos[current].Folio, current+1, len(infos))
	}
	for k, count := range measuresIn {
		if count == 0 {
			return fmt.Errorf("%w: section %q in %s received no measures",
				ErrSectionMisalignment, infos[k].Folio, active.Filename)
		}
	}

	// Commit: build the new sections, move every child over in order,
	// annotate the boundary measures, and swap the old section out in place.
	parent := section.Parent()
	index := section.Index()

	built := make([]*etree.Element, len(infos))
	for k, info := range infos {
		s := etree.NewElement("section")
		s.CreateAttr("n", info.Folio)
		s.CreateAttr("facs", "#"+surfaceIDs[k])
		built[k] = s
	}
	for i, child := range children {
		built[assign[i]].AddChild(child)
		if k, ok := boundary[i]; ok {
			attachPageRef(child, infos[k])
		}
	}

	parent.RemoveChild(section)
	for k := len(built) - 1; k >= 0; k-- {
		parent.InsertChildAt(index, built[k])
	}
	return nil
}

// attachPageRef adds the page-reference annotation to a measure that opens a
// page: a dir carrying the boundary tstamp, rendering the folio label.
func attachPageRef(measure *etree.Element, info SectionInfo) {
	dir := measure.CreateElement("dir")
	dir.CreateAttr("staff", "1")
	dir.CreateAttr("tstamp", info.Tstamp)
	dir.CreateAttr("place", "above")
	dir.CreateAttr("type", "ref")
	rend := dir.CreateElement("rend")
	rend.CreateAttr("fontstyle", "normal")
	rend.CreateAttr("fontsize", "x-small")
	rend.SetText("fol. " + info.Folio)
}
