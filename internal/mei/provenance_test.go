package mei

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func provenanceFixture(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseBytes("Krakow_n01_2r-2v_enc_ed_CMN.mei", []byte(minimalMEI))
	require.NoError(t, err)
	return doc
}

func TestAppendProvenanceFirstRun(t *testing.T) {
	doc := provenanceFixture(t)
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	require.NoError(t, AppendProvenance(doc, "Applied workpackage \"wp1\"", now))

	app := doc.Root().FindElement("//appInfo/application")
	require.NotNil(t, app)
	require.Equal(t, "2026-03-14", app.SelectAttrValue("isodate", ""))
	require.Equal(t, "", app.SelectAttrValue("startdate", ""))

	name := app.SelectElement("name")
	require.NotNil(t, name)
	require.Equal(t, "meipipe", name.Text())

	ps := app.SelectElements("p")
	require.Len(t, ps, 1)
	require.Equal(t, "Applied workpackage \"wp1\"", ps[0].Text())
}

func TestAppendProvenanceSameDayAccumulates(t *testing.T) {
	doc := provenanceFixture(t)
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	require.NoError(t, AppendProvenance(doc, "first run", now))
	require.NoError(t, AppendProvenance(doc, "second run", now))

	apps := doc.Root().FindElements("//appInfo/application")
	require.Len(t, apps, 1, "runs share one application record")

	app := apps[0]
	require.Equal(t, "2026-03-14", app.SelectAttrValue("isodate", ""))
	require.Len(t, app.SelectElements("p"), 2)
}

func TestAppendProvenanceLaterDayPromotesIsodate(t *testing.T) {
	doc := provenanceFixture(t)

	require.NoError(t, AppendProvenance(doc, "first run",
		time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, AppendProvenance(doc, "later run",
		time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)))

	app := doc.Root().FindElement("//appInfo/application")
	require.NotNil(t, app)
	require.Equal(t, "", app.SelectAttrValue("isodate", ""))
	require.Equal(t, "2026-03-14", app.SelectAttrValue("startdate", ""))
	require.Equal(t, "2026-03-20", app.SelectAttrValue("enddate", ""))
	require.Len(t, app.SelectElements("p"), 2)
}

func TestAppendProvenanceRequiresEncodingDesc(t *testing.T) {
	doc, err := ParseBytes("Krakow_n01_2r-2v_enc_ed_CMN.mei",
		[]byte(`<mei xmlns="http://www.music-encoding.org/ns/mei"><meiHead/><music/></mei>`))
	require.NoError(t, err)

	err = AppendProvenance(doc, "run", time.Now())
	require.Error(t, err)
}
