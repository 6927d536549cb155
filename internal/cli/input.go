package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Process exit codes. These are part of the automation surface: callers key
// their handling on them.
const (
	ExitSuccess      = 0
	ExitProcessing   = 1
	ExitFileNotFound = 2
)

// Invocation is the canonicalized description of one CLI run: either a
// single file (-f) or a batch manifest (-m), plus the workpackage selection
// and its additional key=value arguments.
type Invocation struct {
	FilePath         string
	ManifestPath     string
	WorkpackageID    string
	WorkpackagesPath string
	AddArgs          map[string]string
}

// InvocationError carries the semantic exit code for a bad invocation.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitProcessing, Message: fmt.Sprintf(format, args...)}
}

// kvArgs collects repeatable -a key=value flags.
type kvArgs map[string]string

func (k kvArgs) String() string {
	parts := make([]string, 0, len(k))
	for key, val := range k {
		parts = append(parts, key+"="+val)
	}
	return strings.Join(parts, " ")
}

func (k kvArgs) Set(raw string) error {
	key, val, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}
	k[key] = val
	return nil
}

// ParseInvocation parses CLI flags into a canonical Invocation.
// Parsing errors are returned, not printed.
func ParseInvocation(args []string) (Invocation, error) {
	fs := flag.NewFlagSet("meipipe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var file string
	var manifest string
	var wpID string
	var wpPath string
	addArgs := kvArgs{}

	fs.StringVar(&file, "f", "", "Path of the document to process.")
	fs.StringVar(&manifest, "m", "", "Batch manifest path (instead of -f).")
	fs.StringVar(&wpID, "w", "", "Id of the workpackage to execute.")
	fs.StringVar(&wpPath, "p", "workpackages.json", "Path of the workpackage descriptor file.")
	fs.Var(addArgs, "a", "Additional key=value argument, repeatable.")

	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	if file == "" && manifest == "" {
		return Invocation{}, invalidInvocationf("one of -f or -m is required")
	}
	if file != "" && manifest != "" {
		return Invocation{}, invalidInvocationf("-f and -m are mutually exclusive")
	}
	if file != "" && wpID == "" {
		return Invocation{}, invalidInvocationf("-w is required with -f")
	}

	return Invocation{
		FilePath:         file,
		ManifestPath:     manifest,
		WorkpackageID:    wpID,
		WorkpackagesPath: wpPath,
		AddArgs:          addArgs,
	}, nil
}

// ExitCode extracts the semantic exit code from an invocation error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil && invErr.ExitCode != 0 {
		return invErr.ExitCode
	}
	return ExitProcessing
}
