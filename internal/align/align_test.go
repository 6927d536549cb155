package align

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e-laute/meipipe/internal/mei"
	"github.com/e-laute/meipipe/internal/pipeline"
)

// diplContextMEI is a diplomatic sibling spanning two source pages. Every
// measure holds two quarter notes (0.5 whole notes), so page 1r accumulates
// 1.5 whole notes and the 1v boundary lands at tstamp 1.5*4+1 = 7.
const diplContextMEI = `<?xml version="1.0" encoding="UTF-8"?>
<mei xmlns="http://www.music-encoding.org/ns/mei">
  <music><body><mdiv><score>
    <scoreDef><meterSig count="2" unit="4"/></scoreDef>
    <section>
      <pb n="1r"/>
      <measure n="1">
        <staff n="1"><layer><note dur="4"/><note dur="4"/></layer></staff>
        <dir type="ref">fol. 1r</dir>
      </measure>
      <measure n="2"><staff n="1"><layer><note dur="4"/><note dur="4"/></layer></staff></measure>
      <measure n="3"><staff n="1"><layer><note dur="4"/><note dur="4"/></layer></staff></measure>
      <pb n="1v"/>
      <measure n="4">
        <staff n="1"><layer><note dur="4"/><note dur="4"/></layer></staff>
        <dir type="ref">fol. 1v</dir>
      </measure>
      <measure n="5"><staff n="1"><layer><note dur="4"/><note dur="4"/></layer></staff></measure>
      <measure n="6"><staff n="1"><layer><note dur="4"/><note dur="4"/></layer></staff></measure>
    </section>
  </score></mdiv></body></music>
</mei>
`

// editionContextMEI carries the same two pages as already-built sections with
// annotated first measures.
const editionContextMEI = `<?xml version="1.0" encoding="UTF-8"?>
<mei xmlns="http://www.music-encoding.org/ns/mei">
  <music><body><mdiv><score>
    <section n="1r">
      <measure n="1"><dir type="ref" tstamp="1">fol. 1r</dir></measure>
      <measure n="2"/>
      <measure n="3"/>
    </section>
    <section n="1v">
      <measure n="4"><dir type="ref" tstamp="7">fol. 1v</dir></measure>
      <measure n="5"/>
      <measure n="6"/>
    </section>
  </score></mdiv></body></music>
</mei>
`

// activeMEI is the monolithic document to be re-partitioned: one section of
// six measures, two facsimile pages.
const activeMEI = `<?xml version="1.0" encoding="UTF-8"?>
<mei xmlns="http://www.music-encoding.org/ns/mei">
  <music>
    <facsimile>
      <surface xml:id="surf1"/>
      <surface xml:id="surf2"/>
    </facsimile>
    <body><mdiv><score>
      <section>
        <measure n="1"/>
        <measure n="2"/>
        <measure n="3"/>
        <measure n="4"/>
        <measure n="5"/>
        <measure n="6"/>
      </section>
    </score></mdiv></body>
  </music>
</mei>
`

func parseFixture(t *testing.T, stem, content string) *mei.Document {
	t.Helper()
	doc, err := mei.ParseBytes(stem+".mei", []byte(content))
	require.NoError(t, err)
	return doc
}

func activeFixture(t *testing.T) *mei.Document {
	return parseFixture(t, "Krakow_n01_1r-1v_enc_ed_CMN", activeMEI)
}

func serialized(t *testing.T, d *mei.Document) string {
	t.Helper()
	out, err := d.XML.WriteToBytes()
	require.NoError(t, err)
	return string(out)
}

func TestGatherFromDiplomatic(t *testing.T) {
	ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_dipl_GLT", diplContextMEI)

	infos, err := GatherFromDiplomatic(ctx)
	require.NoError(t, err)
	require.Equal(t, []SectionInfo{
		{MeasureNumber: "1", Folio: "1r", Tstamp: "1"},
		{MeasureNumber: "4", Folio: "1v", Tstamp: "7"},
	}, infos)
}

func TestGatherFromDiplomaticHonorsStoredTstamp(t *testing.T) {
	ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_dipl_GLT", diplContextMEI)
	// A context that already carries a boundary tstamp wins over computation.
	ref := ctx.Root().FindElement("//measure[@n='4']/dir")
	require.NotNil(t, ref)
	ref.CreateAttr("tstamp", "6.5")

	infos, err := GatherFromDiplomatic(ctx)
	require.NoError(t, err)
	require.Equal(t, "6.5", infos[1].Tstamp)
}

func TestGatherFromDiplomaticSkipsOrigBranch(t *testing.T) {
	ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_dipl_GLT", strings.Replace(diplContextMEI,
		`<measure n="2"><staff n="1"><layer><note dur="4"/><note dur="4"/></layer></staff></measure>`,
		`<choice>
      <orig><measure n="2"><staff n="1"><layer><note dur="1"/></layer></staff></measure></orig>
      <reg><measure n="2"><staff n="1"><layer><note dur="4"/><note dur="4"/></layer></staff></measure></reg>
    </choice>`, 1))

	infos, err := GatherFromDiplomatic(ctx)
	require.NoError(t, err)
	// The whole-note original reading must not inflate the boundary.
	require.Equal(t, "7", infos[1].Tstamp)
}

func TestGatherFromDiplomaticErrors(t *testing.T) {
	t.Run("no annotations", func(t *testing.T) {
		stripped := strings.ReplaceAll(diplContextMEI, `<dir type="ref">fol. 1r</dir>`, "")
		stripped = strings.ReplaceAll(stripped, `<dir type="ref">fol. 1v</dir>`, "")
		ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_dipl_GLT", stripped)

		_, err := GatherFromDiplomatic(ctx)
		require.ErrorIs(t, err, pipeline.ErrTransformPrecondition)
	})

	t.Run("annotation before any page break", func(t *testing.T) {
		ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_dipl_GLT",
			strings.Replace(diplContextMEI, `<pb n="1r"/>`, "", 1))

		_, err := GatherFromDiplomatic(ctx)
		require.ErrorIs(t, err, pipeline.ErrTransformPrecondition)
		require.Contains(t, err.Error(), "no page break before measure 1")
	})

	t.Run("page break without folio label", func(t *testing.T) {
		ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_dipl_GLT",
			strings.Replace(diplContextMEI, `<pb n="1r"/>`, `<pb/>`, 1))

		_, err := GatherFromDiplomatic(ctx)
		require.ErrorIs(t, err, pipeline.ErrTransformPrecondition)
	})
}

func TestGatherFromEdition(t *testing.T) {
	active := activeFixture(t)
	ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_ed_GLT", editionContextMEI)

	infos, err := GatherFromEdition(active, ctx)
	require.NoError(t, err)
	require.Equal(t, []SectionInfo{
		{MeasureNumber: "1", Folio: "1r", Tstamp: "1"},
		{MeasureNumber: "4", Folio: "1v", Tstamp: "7"},
	}, infos)
}

func TestGatherFromEditionErrors(t *testing.T) {
	t.Run("last measure mismatch", func(t *testing.T) {
		active := activeFixture(t)
		ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_ed_GLT",
			strings.Replace(editionContextMEI, `<measure n="6"/>`, "", 1))

		_, err := GatherFromEdition(active, ctx)
		require.ErrorIs(t, err, pipeline.ErrTransformPrecondition)
		require.Contains(t, err.Error(), "measure count mismatch")
	})

	t.Run("missing annotation tstamp", func(t *testing.T) {
		active := activeFixture(t)
		ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_ed_GLT",
			strings.Replace(editionContextMEI, ` tstamp="7"`, "", 1))

		_, err := GatherFromEdition(active, ctx)
		require.ErrorIs(t, err, pipeline.ErrTransformPrecondition)
	})

	t.Run("missing annotation", func(t *testing.T) {
		active := activeFixture(t)
		ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_ed_GLT",
			strings.Replace(editionContextMEI, `<dir type="ref" tstamp="7">fol. 1v</dir>`, "", 1))

		_, err := GatherFromEdition(active, ctx)
		require.ErrorIs(t, err, pipeline.ErrTransformPrecondition)
	})
}

func TestRunDiplomaticContext(t *testing.T) {
	active := activeFixture(t)
	ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_dipl_GLT", diplContextMEI)

	n, err := Run(active, ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	sections := active.Root().FindElements("//section")
	require.Len(t, sections, 2)

	first, second := sections[0], sections[1]
	require.Equal(t, "1r", first.SelectAttrValue("n", ""))
	require.Equal(t, "#surf1", first.SelectAttrValue("facs", ""))
	require.Len(t, first.SelectElements("measure"), 3)

	require.Equal(t, "1v", second.SelectAttrValue("n", ""))
	require.Equal(t, "#surf2", second.SelectAttrValue("facs", ""))
	require.Len(t, second.SelectElements("measure"), 3)

	// The measure opening page 1v carries the boundary annotation.
	opening := second.SelectElement("measure")
	require.Equal(t, "4", opening.SelectAttrValue("n", ""))
	dir := opening.SelectElement("dir")
	require.NotNil(t, dir)
	require.Equal(t, "ref", dir.SelectAttrValue("type", ""))
	require.Equal(t, "7", dir.SelectAttrValue("tstamp", ""))
	require.Equal(t, "above", dir.SelectAttrValue("place", ""))
	rend := dir.SelectElement("rend")
	require.NotNil(t, rend)
	require.Equal(t, "fol. 1v", rend.Text())
}

func TestRunEditionContext(t *testing.T) {
	active := activeFixture(t)
	ctx := parseFixture(t, "Krakow_n01_1r-1v_enc_ed_GLT", editionContextMEI)

	n, err := Run(active, ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, active.Root().FindElements("//section"), 2)
}

func TestRebuildSurfaceMismatchLeavesTreeUntouched(t *testing.T) {
	active := parseFixture(t, "Krakow_n01_1r-1v_enc_ed_CMN",
		strings.Replace(activeMEI, `<surface xml:id="surf2"/>`, "", 1))
	before := serialized(t, active)

	err := Rebuild(active, []SectionInfo{
		{MeasureNumber: "1", Folio: "1r", Tstamp: "1"},
		{MeasureNumber: "4", Folio: "1v", Tstamp: "7"},
	})
	require.ErrorIs(t, err, ErrSurfaceSectionMismatch)
	require.Equal(t, before, serialized(t, active))
}

func TestRebuildMisalignmentLeavesTreeUntouched(t *testing.T) {
	active := activeFixture(t)
	before := serialized(t, active)

	// The second boundary measure does not exist in the active document.
	err := Rebuild(active, []SectionInfo{
		{MeasureNumber: "1", Folio: "1r", Tstamp: "1"},
		{MeasureNumber: "99", Folio: "1v", Tstamp: "7"},
	})
	require.ErrorIs(t, err, ErrSectionMisalignment)
	require.Equal(t, before, serialized(t, active))
}

func TestRebuildEmptySectionLeavesTreeUntouched(t *testing.T) {
	active := activeFixture(t)
	before := serialized(t, active)

	// A boundary on the very first measure would leave page 1r empty.
	err := Rebuild(active, []SectionInfo{
		{MeasureNumber: "1", Folio: "1r", Tstamp: "1"},
		{MeasureNumber: "1", Folio: "1v", Tstamp: "7"},
	})
	require.ErrorIs(t, err, ErrSectionMisalignment)
	require.Equal(t, before, serialized(t, active))
}

func TestRebuildRequiresSurfaceIDs(t *testing.T) {
	active := parseFixture(t, "Krakow_n01_1r-1v_enc_ed_CMN",
		strings.Replace(activeMEI, `<surface xml:id="surf2"/>`, `<surface/>`, 1))

	err := Rebuild(active, []SectionInfo{
		{MeasureNumber: "1", Folio: "1r", Tstamp: "1"},
		{MeasureNumber: "4", Folio: "1v", Tstamp: "7"},
	})
	require.ErrorIs(t, err, pipeline.ErrTransformPrecondition)
}
