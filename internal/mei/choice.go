package mei

import "github.com/beevik/etree"

// Editorial alternatives pair two equivalent encodings of the same music:
// orig/reg and sic/corr. A traversal must follow exactly one branch of each
// pair; the corpus counts the regularized branch and skips the
// original-reading one.
var alternativeBranches = map[string]bool{
	"orig": true,
	"sic":  true,
}

// PrimaryChildren returns elem's child elements with editorial-alternative
// branches removed. Every traversal that must not count a choice twice
// (duration summation, page-evidence gathering) goes through this single
// accessor.
func PrimaryChildren(elem *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, child := range elem.ChildElements() {
		if alternativeBranches[child.Tag] {
			continue
		}
		out = append(out, child)
	}
	return out
}
