package align

import (
	"github.com/beevik/etree"

	"github.com/e-laute/meipipe/internal/mei"
	"github.com/e-laute/meipipe/internal/pipeline"
)

// SectionInfo is one page boundary: the measure that opens the page, the
// folio label of the physical source page, and the tstamp at which the page
// turn falls.
type SectionInfo struct {
	MeasureNumber string
	Folio         string
	Tstamp        string
}

// pbGroup is the run of measures belonging to one page-break marker.
// The leading group of a document (before any pb) has a nil marker.
type pbGroup struct {
	pb  *etree.Element
	dur float64 // accumulated measure duration, whole notes
}

// pageRef is one page-reference annotation found in the context document,
// tied to its owning measure and that measure's running page break.
type pageRef struct {
	dir     *etree.Element
	measure *etree.Element
	group   int
}

// GatherFromDiplomatic collects page evidence from a diplomatic sibling.
//
// A single pre-order traversal carries the running page-break marker: every
// pb opens a new group, every measure is attributed (with its duration) to
// the current group, and every page-reference annotation is tied to its
// owning measure's group. A page break inside a regularized branch is
// traversed in place, so it locally overrides the running value for the
// measures of that branch. This replaces the legacy per-annotation rescan of
// the whole tree.
//
// The boundary tstamp is taken from the annotation when it carries one;
// otherwise it is derived from the accumulated duration of the previous
// page's measures, placed one unit after their last event.
func GatherFromDiplomatic(ctx *mei.Document) ([]SectionInfo, error) {
	w := &diplWalker{groups: []pbGroup{{}}}
	if err := w.walk(ctx.Root(), nil); err != nil {
		return nil, err
	}

	if len(w.refs) == 0 {
		return nil, pipeline.Preconditionf("no page-reference annotation found in %s", ctx.Filename)
	}

	unit := ctx.MeterUnit()
	infos := make([]SectionInfo, 0, len(w.refs))
	for _, ref := range w.refs {
		group := w.groups[ref.group]
		if group.pb == nil {
			return nil, pipeline.Preconditionf(
				"no page break before measure %s in %s",
				ref.measure.SelectAttrValue("n", "?"), ctx.Filename)
		}
		folio := group.pb.SelectAttrValue("n", "")
		if folio == "" {
			return nil, pipeline.Preconditionf("page break before measure %s in %s has no folio label",
				ref.measure.SelectAttrValue("n", "?"), ctx.Filename)
		}

		tstamp := ref.dir.SelectAttrValue("tstamp", "")
		if tstamp == "" {
			// First page: the annotation sits on the first beat. Later
			// pages: one unit past the previous page's last event.
			t := 1.0
			if ref.group > 0 {
				t = mei.TstampAfter(w.groups[ref.group-1].dur, unit)
			}
			tstamp = mei.FormatTstamp(t)
		}

		infos = append(infos, SectionInfo{
			MeasureNumber: ref.measure.SelectAttrValue("n", ""),
			Folio:         folio,
			Tstamp:        tstamp,
		})
	}
	return infos, nil
}

// diplWalker is the traversal state: the ordered page-break groups and the
// page references found so far.
type diplWalker struct {
	groups []pbGroup
	refs   []pageRef
}

// walk visits elem's subtree in pre-order. measure is the innermost measure
// ancestor, or nil outside any measure.
func (w *diplWalker) walk(elem *etree.Element, measure *etree.Element) error {
	for _, child := range mei.PrimaryChildren(elem) {
		switch child.Tag {
		case "pb":
			w.groups = append(w.groups, pbGroup{pb: child})
		case "measure":
			d, err := mei.DurationOf(child)
			if err != nil {
				return pipeline.Preconditionf("measure %s: %v", child.SelectAttrValue("n", "?"), err)
			}
			w.groups[len(w.groups)-1].dur += d
			if err := w.walk(child, child); err != nil {
				return err
			}
		case "dir":
			if child.SelectAttrValue("type", "") == "ref" && measure != nil {
				w.refs = append(w.refs, pageRef{dir: child, measure: measure, group: len(w.groups) - 1})
			}
		default:
			if err := w.walk(child, measure); err != nil {
				return err
			}
		}
	}
	return nil
}

// GatherFromEdition reads existing page-bounded sections from an edition
// sibling directly: each section's first measure must already carry a
// page-reference annotation with a tstamp.
//
// The last measure numbers of the active and context documents must match
// exactly. The check is deliberately confined to this mode: a diplomatic
// sibling may legitimately bar the same music differently, an edition
// sibling may not.
func GatherFromEdition(active, ctx *mei.Document) ([]SectionInfo, error) {
	activeLast, err := active.LastMeasureNumber()
	if err != nil {
		return nil, pipeline.Preconditionf("%v", err)
	}
	ctxLast, err := ctx.LastMeasureNumber()
	if err != nil {
		return nil, pipeline.Preconditionf("%v", err)
	}
	if activeLast != ctxLast {
		return nil, pipeline.Preconditionf(
			"measure count mismatch: %s ends at measure %s, %s at %s",
			active.Filename, activeLast, ctx.Filename, ctxLast)
	}

	sections := ctx.Root().FindElements("//section[@n]")
	if len(sections) == 0 {
		return nil, pipeline.Preconditionf("no labelled sections in %s", ctx.Filename)
	}

	infos := make([]SectionInfo, 0, len(sections))
	for _, section := range sections {
		first := section.FindElement(".//measure")
		if first == nil {
			return nil, pipeline.Preconditionf(
				"section %q in %s has no measures", section.SelectAttrValue("n", ""), ctx.Filename)
		}
		dir := findPageRef(first)
		if dir == nil {
			return nil, pipeline.Preconditionf(
				"no page-reference found on the first measure of section %q in %s",
				section.SelectAttrValue("n", ""), ctx.Filename)
		}
		tstamp := dir.SelectAttrValue("tstamp", "")
		if tstamp == "" {
			return nil, pipeline.Preconditionf(
				"page-reference in section %q of %s has no tstamp",
				section.SelectAttrValue("n", ""), ctx.Filename)
		}
		infos = append(infos, SectionInfo{
			MeasureNumber: first.SelectAttrValue("n", ""),
			Folio:         section.SelectAttrValue("n", ""),
			Tstamp:        tstamp,
		})
	}
	return infos, nil
}

func findPageRef(measure *etree.Element) *etree.Element {
	for _, dir := range measure.SelectElements("dir") {
		if dir.SelectAttrValue("type", "") == "ref" {
			return dir
		}
	}
	return nil
}
