package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/e-laute/meipipe/internal/batch"
	"github.com/e-laute/meipipe/internal/pipeline"
	"github.com/e-laute/meipipe/internal/transforms"
	"github.com/e-laute/meipipe/internal/workpackage"
)

// Execute maps a canonical Invocation to a pipeline run and translates the
// outcome to a semantic exit code. The returned error is what main prints.
func Execute(ctx context.Context, inv Invocation) (int, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	fs := osfs.New("/")
	return ExecuteOn(ctx, fs, inv, logger)
}

// ExecuteOn is Execute with an injected filesystem and logger, so the whole
// CLI surface (including exit codes) is testable on an in-memory filesystem.
func ExecuteOn(ctx context.Context, fs billy.Filesystem, inv Invocation, logger *slog.Logger) (int, error) {
	coord := &pipeline.Coordinator{
		FS:       fs,
		Registry: transforms.NewRegistry(),
		Logger:   logger,
	}

	wpPath, err := absolutize(inv.WorkpackagesPath)
	if err != nil {
		return ExitProcessing, err
	}
	wps, err := workpackage.Load(fs, wpPath)
	if err != nil {
		return ExitProcessing, err
	}

	if inv.FilePath != "" {
		return executeFile(ctx, fs, coord, inv, wps)
	}
	return executeBatch(ctx, fs, coord, inv, wps, logger)
}

func executeFile(ctx context.Context, fs billy.Filesystem, coord *pipeline.Coordinator, inv Invocation, wps []workpackage.Workpackage) (int, error) {
	target, err := absolutize(inv.FilePath)
	if err != nil {
		return ExitProcessing, err
	}
	if _, err := fs.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return ExitFileNotFound, fmt.Errorf("file not found: %s", target)
		}
		return ExitProcessing, err
	}

	wp, err := workpackage.Find(wps, inv.WorkpackageID)
	if err != nil {
		return ExitProcessing, err
	}
	if err := coord.Registry.ValidateWorkpackage(wp); err != nil {
		return ExitProcessing, err
	}

	if _, err := coord.Run(ctx, target, wp, inv.AddArgs); err != nil {
		return ExitProcessing, err
	}
	return ExitSuccess, nil
}

func executeBatch(ctx context.Context, fs billy.Filesystem, coord *pipeline.Coordinator, inv Invocation, wps []workpackage.Workpackage, logger *slog.Logger) (int, error) {
	manifestPath, err := absolutize(inv.ManifestPath)
	if err != nil {
		return ExitProcessing, err
	}
	m, err := batch.LoadManifest(fs, manifestPath)
	if err != nil {
		return ExitProcessing, err
	}

	// -w overrides the manifest's workpackage selection.
	wpID := m.Workpackage
	if inv.WorkpackageID != "" {
		wpID = inv.WorkpackageID
	}
	wp, err := workpackage.Find(wps, wpID)
	if err != nil {
		return ExitProcessing, err
	}
	if err := coord.Registry.ValidateWorkpackage(wp); err != nil {
		return ExitProcessing, err
	}

	roots := make([]string, len(m.Roots))
	for i, root := range m.Roots {
		if roots[i], err = absolutize(root); err != nil {
			return ExitProcessing, err
		}
	}
	m.Roots = roots

	driver := &batch.Driver{FS: fs, Coordinator: coord, Logger: logger}
	sum, err := driver.Run(ctx, m, wp)
	if err != nil {
		return ExitProcessing, err
	}
	if sum.Failed() > 0 {
		return ExitProcessing, fmt.Errorf("%d of %d documents failed", sum.Failed(), sum.Processed)
	}
	return ExitSuccess, nil
}

// absolutize resolves a CLI path against the process working directory, so
// the billy filesystem (rooted at /) sees one canonical form.
func absolutize(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return filepath.Clean(abs), nil
}
