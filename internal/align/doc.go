// Package align re-partitions a document's measures into page-bounded
// sections using evidence from a sibling encoding of the same work.
//
// The engine runs in three fail-fast stages over the active document's flat
// measure sequence: gather section evidence from the context document
// (page-break markers in a diplomatic sibling, or existing sections in an
// edition sibling), validate the evidence against the active document's
// facsimile declarations, and rebuild. The rebuild is planned without
// touching the tree; mutation happens only once the whole partition is known
// to be consistent, so a failure at any stage leaves the document exactly as
// it was handed in.
package align
