package harness

import (
	"context"
	"fmt"
	"strings"

	"shellharness/pipe"
)

// Program is an opaque parsed command list. The harness never inspects
// it; it is produced by a Parser and handed verbatim to the matching
// Executor.
type Program any

// Parser turns command text into an executable program. A parse failure
// is an unconditional test failure: there is nothing to run.
type Parser interface {
	Parse(command string) (Program, error)
}

// Executor walks a parsed program against the supplied environment,
// working directory, and pipe endpoints, and returns the exit code.
//
// The executor must close both output write ends when it completes;
// closing them is the sole signal that lets the harness's output
// collectors observe end-of-stream. An error return reports an internal
// fault, distinct from a normal nonzero exit code.
type Executor interface {
	Execute(ctx context.Context, program Program, stdio ExecIO) (int, error)
}

// ExecIO bundles everything an executor needs besides the program itself.
type ExecIO struct {
	Env    map[string]string
	Dir    string
	Stdin  *pipe.Reader
	Stdout *pipe.Writer
	Stderr *pipe.Writer
}

// Result is the outcome of one scenario run.
type Result struct {
	// ExitCode is the code reported by the executor.
	ExitCode int

	// Stdout and Stderr hold the captured output text, in the exact
	// per-stream order the executor wrote it.
	Stdout string
	Stderr string

	// SandboxPath is the canonical sandbox root, or empty when the
	// scenario never provisioned one.
	SandboxPath string

	// Pass is true while no expectation has been violated.
	Pass bool

	// Failures lists every violated expectation. All configured checks
	// are evaluated even after an earlier one fails, so a single run
	// surfaces every discrepancy.
	Failures []string
}

func newResult() *Result {
	return &Result{Pass: true}
}

// AddFailure records a violated expectation and marks the result failed.
func (r *Result) AddFailure(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
	r.Pass = false
}

// AssertionError describes a single expectation violated by a run,
// always naming the command under test.
type AssertionError struct {
	Command  string // original command text
	Check    string // which expectation was violated
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s mismatch for command: %s\n", e.Check, e.Command)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual:   %s", e.Actual)
	return buf.String()
}
