// Package mei holds the document model for MEI encodings: parsing a file
// into a wrapped element tree, classifying it by notation type from the
// filename convention, resolving sibling encodings of the same work, the
// musical duration calculator, and serialization back to storage with the
// original format-declaration headers preserved.
//
// A Document is owned by exactly one pipeline run. Nothing in this package
// caches parsed trees; resolution happens fresh per run.
package mei
