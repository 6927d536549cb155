// Package pipeline executes workpackages over MEI documents: a registry of
// named transforms, a dispatcher that threads the active document through the
// steps, and a coordinator that wraps one run in context resolution,
// parameter validation, provenance, and an all-or-nothing commit.
package pipeline
