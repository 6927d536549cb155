package mei

import (
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"
)

// DurationOf computes the musical duration of the subtree rooted at elem, in
// whole-note units.
//
// Each duration-bearing leaf with base denominator d (@dur: 1=whole, 2=half,
// 4=quarter, ...) and dot count k (@dots) contributes
//
//	(1/d) * (2 - 2^-k)
//
// the standard dotted-note expansion. Container children (beams, chords,
// groups) are recursed into; editorial-alternative branches are skipped.
func DurationOf(elem *etree.Element) (float64, error) {
	total := 0.0
	for _, child := range PrimaryChildren(elem) {
		durAttr := child.SelectAttrValue("dur", "")
		if durAttr == "" {
			sub, err := DurationOf(child)
			if err != nil {
				return 0, err
			}
			total += sub
			continue
		}
		dur, err := strconv.ParseFloat(durAttr, 64)
		if err != nil || dur <= 0 {
			return 0, fmt.Errorf("malformed @dur %q on <%s>", durAttr, child.Tag)
		}
		dots := 0
		if dotsAttr := child.SelectAttrValue("dots", ""); dotsAttr != "" {
			dots, err = strconv.Atoi(dotsAttr)
			if err != nil || dots < 0 {
				return 0, fmt.Errorf("malformed @dots %q on <%s>", dotsAttr, child.Tag)
			}
		}
		total += (1.0 / dur) * (2.0 - math.Pow(2, -float64(dots)))
	}
	return total, nil
}

// TstampAfter converts a whole-note duration into the document's tstamp
// scale (counted in meter units, e.g. unit=4 counts quarter notes) and
// places the result immediately after the last event: tstamp 1 is the first
// beat, so a full bar of content yields total*unit + 1.
func TstampAfter(wholeNotes float64, meterUnit int) float64 {
	return wholeNotes*float64(meterUnit) + 1
}

// FormatTstamp renders a tstamp value the way the corpus writes them:
// integral values without a decimal point.
func FormatTstamp(t float64) string {
	if t == math.Trunc(t) {
		return strconv.FormatFloat(t, 'f', 0, 64)
	}
	return strconv.FormatFloat(t, 'f', -1, 64)
}
