package harness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Assertion type constants.
const (
	AssertTypeExists     = "exists"
	AssertTypeNotExists  = "not_exists"
	AssertTypeTextEquals = "text_equals"
)

// FileAssertion is one post-run filesystem predicate over a
// sandbox-relative path.
type FileAssertion struct {
	// Type is one of the AssertType constants.
	Type string `yaml:"type"`

	// Path is resolved against the scenario's working directory.
	Path string `yaml:"path"`

	// Text is the exact expected file content (text_equals only).
	Text string `yaml:"text,omitempty"`
}

// evaluateFileAssertions checks every assertion in declaration order,
// recording each violation. Evaluation never stops early: a single run
// reports all failing predicates.
func evaluateFileAssertions(command, cwd string, assertions []FileAssertion, res *Result) {
	for _, a := range assertions {
		if err := evalFileAssertion(command, cwd, a); err != nil {
			res.AddFailure("%v", err)
		}
	}
}

func evalFileAssertion(command, cwd string, a FileAssertion) error {
	target := filepath.Join(cwd, a.Path)

	switch a.Type {
	case AssertTypeExists:
		if _, err := os.Stat(target); err != nil {
			return &AssertionError{
				Command:  command,
				Check:    "filesystem",
				Expected: fmt.Sprintf("%s to exist", a.Path),
				Actual:   describeStatFailure(err),
			}
		}
	case AssertTypeNotExists:
		if _, err := os.Stat(target); err == nil {
			return &AssertionError{
				Command:  command,
				Check:    "filesystem",
				Expected: fmt.Sprintf("%s to not exist", a.Path),
				Actual:   "entry exists",
			}
		}
	case AssertTypeTextEquals:
		data, err := os.ReadFile(target)
		if err != nil {
			// An unreadable file is a hard failure, distinct from a
			// content mismatch.
			return fmt.Errorf("reading %s for command %q: %w", a.Path, command, err)
		}
		if string(data) != a.Text {
			return &AssertionError{
				Command:  command,
				Check:    "file content of " + a.Path,
				Expected: fmt.Sprintf("%q", a.Text),
				Actual:   fmt.Sprintf("%q", string(data)),
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func describeStatFailure(err error) string {
	if errors.Is(err, fs.ErrNotExist) {
		return "no such entry"
	}
	return err.Error()
}
