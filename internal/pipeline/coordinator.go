package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/e-laute/meipipe/internal/mei"
	"github.com/e-laute/meipipe/internal/workpackage"
)

// Coordinator composes one pipeline run over one document: context
// resolution, parameter validation, dispatch, and the all-or-nothing commit.
type Coordinator struct {
	FS       billy.Filesystem
	Registry Registry
	Logger   *slog.Logger

	// Now supplies the provenance timestamp; tests pin it.
	Now func() time.Time
}

// Result describes a completed (committed or dry) run.
type Result struct {
	Document  *mei.Document
	Messages  []StepMessage
	Committed bool
}

// Run executes the workpackage on the document at path.
//
// Order: resolve context siblings, validate parameters, dispatch steps. The
// write happens strictly after every step has succeeded, and only when the
// workpackage asks for its result to be committed; a failure anywhere leaves
// the on-disk document untouched. This is the failure-containment property
// the rest of the repository leans on.
func (c *Coordinator) Run(ctx context.Context, path string, wp workpackage.Workpackage, raw map[string]string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := c.Registry.ValidateWorkpackage(wp); err != nil {
		return nil, err
	}

	active, err := mei.Parse(c.FS, path)
	if err != nil {
		return nil, err
	}

	contexts, err := mei.ResolveContext(c.FS, path)
	if err != nil {
		return nil, err
	}

	params, err := workpackage.ValidateParams(wp, raw, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("running workpackage",
		"workpackage", wp.ID, "file", active.Filename,
		"notation", active.Notation, "steps", len(wp.Scripts))

	active, messages, err := Dispatch(c.Registry, wp.Scripts, active, contexts, params)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		logger.Info("step completed", "step", m.Step, "message", m.Message)
	}

	if !wp.CommitResult {
		return &Result{Document: active, Messages: messages, Committed: false}, nil
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	label := fmt.Sprintf("Applied workpackage %q (%s)", wp.ID, wp.Label)
	if err := mei.AppendProvenance(active, label, now()); err != nil {
		return nil, err
	}
	if err := mei.Write(c.FS, active); err != nil {
		return nil, err
	}
	logger.Info("committed result", "file", active.Path)

	return &Result{Document: active, Messages: messages, Committed: true}, nil
}
