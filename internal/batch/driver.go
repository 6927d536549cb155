package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/e-laute/meipipe/internal/pipeline"
	"github.com/e-laute/meipipe/internal/workpackage"
)

// Failure records one document the batch could not process.
type Failure struct {
	Path string
	Err  error
}

// Summary aggregates a batch run.
type Summary struct {
	Processed int
	Succeeded int
	Failures  []Failure
}

// Failed reports the number of documents that errored.
func (s Summary) Failed() int { return len(s.Failures) }

// Driver iterates a manifest's documents through one coordinator, serially.
type Driver struct {
	FS          billy.Filesystem
	Coordinator *pipeline.Coordinator
	Logger      *slog.Logger
}

// Run applies the workpackage to every selected document.
//
// Documents are processed in deterministic (sorted) order, one at a time. A
// per-document error is logged and recorded in the summary; the batch always
// continues to the next file. Only discovery problems (unreadable root,
// broken manifest selection) and context cancellation abort the whole run.
func (d *Driver) Run(ctx context.Context, m Manifest, wp workpackage.Workpackage) (Summary, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files, err := d.selectFiles(m)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("batch starting", "workpackage", wp.ID, "files", len(files))

	var sum Summary
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Processed++
		if _, err := d.Coordinator.Run(ctx, file, wp, m.Params); err != nil {
			logger.Error("file failed", "file", file, "error", err)
			sum.Failures = append(sum.Failures, Failure{Path: file, Err: err})
			continue
		}
		sum.Succeeded++
	}

	logger.Info("batch finished",
		"processed", sum.Processed, "succeeded", sum.Succeeded, "failed", sum.Failed())
	return sum, nil
}

// selectFiles expands the manifest roots into a sorted list of document paths.
func (d *Driver) selectFiles(m Manifest) ([]string, error) {
	var filter *regexp.Regexp
	if m.Pattern != "" {
		var err error
		filter, err = regexp.Compile(m.Pattern)
		if err != nil {
			return nil, fmt.Errorf("manifest: invalid pattern: %w", err)
		}
	}

	var files []string
	for _, root := range m.Roots {
		if err := d.walk(root, filter, &files); err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func (d *Driver) walk(dir string, filter *regexp.Regexp, files *[]string) error {
	entries, err := d.FS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	for _, e := range entries {
		p := path.Join(dir, e.Name())
		if e.IsDir() {
			if err := d.walk(p, filter, files); err != nil {
				return err
			}
			continue
		}
		if !strings.HasSuffix(e.Name(), ".mei") {
			continue
		}
		if filter != nil && !filter.MatchString(e.Name()) {
			continue
		}
		*files = append(*files, p)
	}
	return nil
}
