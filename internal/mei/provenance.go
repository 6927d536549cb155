package mei

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
)

// applicationName identifies this tool's provenance record inside
// <appInfo>. All pipeline runs share one <application> element; each run
// appends one <p> describing what was applied.
const applicationName = "meipipe"

// AppendProvenance records a pipeline application on the document header:
// a <p> with the run label under the meipipe <application> in <appInfo>,
// creating the application element on first use.
//
// Date attributes follow the corpus convention: a single-day record carries
// @isodate; once a record spans multiple days the original @isodate is
// promoted to @startdate and @enddate tracks the latest run.
func AppendProvenance(d *Document, label string, now time.Time) error {
	today := now.Format("2006-01-02")

	app := findApplication(d.Root())
	if app == nil {
		appInfo := d.Root().FindElement("//appInfo")
		if appInfo == nil {
			encodingDesc := d.Root().FindElement("//encodingDesc")
			if encodingDesc == nil {
				return fmt.Errorf("%s: header has no encodingDesc for provenance record", d.Filename)
			}
			appInfo = encodingDesc.CreateElement("appInfo")
		}
		app = appInfo.CreateElement("application")
		app.CreateAttr("isodate", today)
		app.CreateElement("name").SetText(applicationName)
	} else {
		if iso := app.SelectAttrValue("isodate", ""); iso != "" && iso != today {
			app.CreateAttr("startdate", iso)
			app.RemoveAttr("isodate")
		}
		if app.SelectAttrValue("isodate", "") == "" {
			app.CreateAttr("enddate", today)
		}
	}

	app.CreateElement("p").SetText(label)
	return nil
}

func findApplication(root *etree.Element) *etree.Element {
	for _, app := range root.FindElements("//appInfo/application") {
		name := app.SelectElement("name")
		if name != nil && name.Text() == applicationName {
			return app
		}
	}
	return nil
}
