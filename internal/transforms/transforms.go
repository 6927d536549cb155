// Package transforms implements the operations a workpackage can name.
//
// Every operation satisfies pipeline.TransformFunc and is published through
// NewRegistry under its module.function-style identifier. Operations mutate
// only the document they are handed and fail with a typed error instead of
// returning an inconsistent tree.
package transforms

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/e-laute/meipipe/internal/align"
	"github.com/e-laute/meipipe/internal/mei"
	"github.com/e-laute/meipipe/internal/pipeline"
	"github.com/e-laute/meipipe/internal/workpackage"
)

// NewRegistry returns the full operation table. Workpackage descriptors are
// validated against it at load time.
func NewRegistry() pipeline.Registry {
	return pipeline.Registry{
		"measures.add_sb_every_n":       AddSystemBreaks,
		"measures.remove_all_sbs":       RemoveSystemBreaks,
		"dirs.add_finis":                AddFinis,
		"sections.rebuild_from_context": RebuildSections,
	}
}

// AddSystemBreaks inserts a system beginning after every n-th measure.
// Requires the Number parameter "n".
func AddSystemBreaks(active *mei.Document, _ []*mei.Document, params workpackage.Params) (*mei.Document, string, error) {
	n, ok := params.Int("n")
	if !ok {
		return nil, "", pipeline.Preconditionf("add_sb_every_n needs Number parameter %q", "n")
	}
	if n <= 0 {
		return nil, "", pipeline.Preconditionf("add_sb_every_n: n must be positive, got %d", n)
	}

	added := 0
	for i, measure := range active.Measures() {
		if (i+1)%n != 0 {
			continue
		}
		sb := etree.NewElement("sb")
		measure.Parent().InsertChildAt(measure.Index()+1, sb)
		added++
	}
	return active, fmt.Sprintf("added %d system beginnings (every %d measures)", added, n), nil
}

// RemoveSystemBreaks removes every system beginning from the document.
func RemoveSystemBreaks(active *mei.Document, _ []*mei.Document, _ workpackage.Params) (*mei.Document, string, error) {
	sbs := active.Root().FindElements("//sb")
	for _, sb := range sbs {
		sb.Parent().RemoveChild(sb)
	}
	return active, fmt.Sprintf("removed %d system beginnings", len(sbs)), nil
}

// AddFinis places a "Finis" directive one unit past the last event of the
// final measure. An existing finis directive is re-timed instead of
// duplicated, so the operation can be re-run after the music changed.
func AddFinis(active *mei.Document, _ []*mei.Document, _ workpackage.Params) (*mei.Document, string, error) {
	measures := active.Measures()
	if len(measures) == 0 {
		return nil, "", pipeline.Preconditionf("add_finis: %s has no measures", active.Filename)
	}

	fin := active.Root().FindElement("//dir[@type='finis']")
	measure := measures[len(measures)-1]
	if fin != nil {
		measure = owningMeasure(fin)
		if measure == nil {
			return nil, "", pipeline.Preconditionf("add_finis: finis directive outside any measure")
		}
	}

	layer := measure.FindElement(".//layer")
	if layer == nil {
		return nil, "", pipeline.Preconditionf("add_finis: measure %s has no layer", measure.SelectAttrValue("n", "?"))
	}
	dur, err := mei.DurationOf(layer)
	if err != nil {
		return nil, "", pipeline.Preconditionf("add_finis: %v", err)
	}
	tstamp := mei.FormatTstamp(mei.TstampAfter(dur, active.MeterUnit()))

	if fin == nil {
		fin = measure.CreateElement("dir")
		fin.CreateAttr("staff", "1")
		fin.CreateAttr("place", "above")
		fin.CreateAttr("type", "finis")
		fin.SetText("Finis")
	}
	fin.CreateAttr("tstamp", tstamp)

	return active, fmt.Sprintf("finis placed at tstamp %s of measure %s", tstamp, measure.SelectAttrValue("n", "?")), nil
}

// RebuildSections re-partitions the document's measures into page-bounded
// sections using the sibling named by the String parameter "context_type".
func RebuildSections(active *mei.Document, contexts []*mei.Document, params workpackage.Params) (*mei.Document, string, error) {
	want, ok := params.String("context_type")
	if !ok {
		return nil, "", pipeline.Preconditionf("rebuild_from_context needs String parameter %q", "context_type")
	}
	ctx, err := mei.RequireContext(contexts, mei.NotationType(want))
	if err != nil {
		return nil, "", err
	}
	n, err := align.Run(active, ctx)
	if err != nil {
		return nil, "", err
	}
	return active, fmt.Sprintf("rebuilt %d page sections from %s", n, ctx.Filename), nil
}

func owningMeasure(elem *etree.Element) *etree.Element {
	for e := elem.Parent(); e != nil; e = e.Parent() {
		if e.Tag == "measure" {
			return e
		}
	}
	return nil
}
