package harness

import (
	"io"
	"log/slog"
	"time"

	"shellharness/internal/environ"
	"shellharness/internal/sandbox"
)

// Builder accumulates one scenario: command text, fixtures, environment
// overrides, stdin bytes, expectations, and post-run filesystem
// assertions. Every method returns the same builder for chaining.
//
// A builder is exclusively owned by one scenario and is mutable only
// until Run; it must not be shared across goroutines.
type Builder struct {
	parser   Parser
	executor Executor
	logger   *slog.Logger

	command  string
	stdin    []byte
	env      map[string]string
	sandbox  *sandbox.Dir
	deadline time.Duration

	wantExitCode int
	wantStdout   string
	wantStderr   string
	goldenName   string
	assertions   []FileAssertion

	buildErr error
	ran      bool
}

// New creates a builder bound to a parser and an executor. The
// environment starts as an independent copy of the once-captured process
// snapshot; overrides never write back to it.
func New(parser Parser, executor Executor) *Builder {
	return &Builder{
		parser:   parser,
		executor: executor,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		env:      environ.Capture(),
	}
}

// WithLogger replaces the builder's logger. The default discards
// everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Command sets the command text. It stays opaque until Run parses it.
func (b *Builder) Command(command string) *Builder {
	b.command = command
	return b
}

// Stdin sets the literal bytes supplied on the executor's stdin.
func (b *Builder) Stdin(text string) *Builder {
	b.stdin = []byte(text)
	return b
}

// EnvVar overrides one environment variable for this scenario only.
func (b *Builder) EnvVar(key, value string) *Builder {
	b.env = environ.WithOverride(b.env, key, value)
	return b
}

// Deadline bounds the run. A scenario exceeding it is reported as a
// timeout, distinct from an assertion mismatch. Zero means no deadline.
func (b *Builder) Deadline(d time.Duration) *Builder {
	b.deadline = d
	return b
}

// EnsureSandbox provisions the sandbox directory without writing any
// fixture into it. Useful when the command itself creates everything but
// the scenario still needs filesystem isolation or the sandbox sentinel.
func (b *Builder) EnsureSandbox() *Builder {
	b.getSandbox()
	return b
}

// getSandbox is the get-or-create accessor behind every fixture and
// assertion call. The sandbox is created lazily so scenarios that never
// touch the filesystem incur no cost.
func (b *Builder) getSandbox() *sandbox.Dir {
	if b.buildErr != nil {
		return nil
	}
	if b.sandbox == nil {
		d, err := sandbox.New()
		if err != nil {
			b.buildErr = err
			return nil
		}
		b.sandbox = d
	}
	return b.sandbox
}

// SandboxPath returns the canonical sandbox path, or the empty string
// when no sandbox has been provisioned yet. Repeated calls after
// provisioning always return the identical path.
func (b *Builder) SandboxPath() string {
	if b.sandbox == nil {
		return ""
	}
	return b.sandbox.Path()
}

// File writes a fixture file under the sandbox, provisioning the sandbox
// on first use. A failed write aborts the scenario at Run.
func (b *Builder) File(path, text string) *Builder {
	if d := b.getSandbox(); d != nil {
		if err := d.WriteFile(path, text); err != nil {
			b.buildErr = err
		}
	}
	return b
}

// Directory creates a fixture directory under the sandbox, provisioning
// the sandbox on first use.
func (b *Builder) Directory(path string) *Builder {
	if d := b.getSandbox(); d != nil {
		if err := d.MkdirAll(path); err != nil {
			b.buildErr = err
		}
	}
	return b
}

// ExpectExitCode sets the expected exit code. The default is 0.
func (b *Builder) ExpectExitCode(code int) *Builder {
	b.wantExitCode = code
	return b
}

// ExpectStdout appends to the expected stdout text. Successive calls
// accumulate, allowing multi-part expectations. The text may contain the
// SandboxToken sentinel.
func (b *Builder) ExpectStdout(text string) *Builder {
	b.wantStdout += text
	return b
}

// ExpectStderr appends to the expected stderr text. Successive calls
// accumulate. The text may contain the SandboxToken sentinel.
func (b *Builder) ExpectStderr(text string) *Builder {
	b.wantStderr += text
	return b
}

// AssertExists registers a post-run check that a filesystem entry exists
// at the sandbox-relative path.
func (b *Builder) AssertExists(path string) *Builder {
	b.EnsureSandbox()
	b.assertions = append(b.assertions, FileAssertion{Type: AssertTypeExists, Path: path})
	return b
}

// AssertNotExists registers a post-run check that no filesystem entry
// exists at the sandbox-relative path.
func (b *Builder) AssertNotExists(path string) *Builder {
	b.EnsureSandbox()
	b.assertions = append(b.assertions, FileAssertion{Type: AssertTypeNotExists, Path: path})
	return b
}

// AssertFileEquals registers a post-run check that the file at the
// sandbox-relative path contains exactly text.
func (b *Builder) AssertFileEquals(path, text string) *Builder {
	b.EnsureSandbox()
	b.assertions = append(b.assertions, FileAssertion{Type: AssertTypeTextEquals, Path: path, Text: text})
	return b
}

// Close removes the sandbox directory, if one was provisioned. It must
// be called when the scenario is discarded, regardless of the test
// outcome; RunT registers it automatically via t.Cleanup.
func (b *Builder) Close() error {
	if b.sandbox == nil {
		return nil
	}
	return b.sandbox.Remove()
}
