package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"shellharness/internal/collect"
	"shellharness/pipe"
)

// SandboxToken is the sentinel replaced in expected stdout/stderr text
// with the scenario's concrete sandbox path at comparison time, keeping
// expected-output literals machine independent.
const SandboxToken = "$TEMP_DIR"

// noSandboxMarker substitutes for the sentinel when the scenario never
// provisioned a sandbox.
const noSandboxMarker = "NO_TEMP_DIR"

// ErrAlreadyRun is returned by Run on a builder whose scenario already
// ran. Run is a one-shot terminal operation.
var ErrAlreadyRun = errors.New("scenario has already run")

// Run executes the scenario and evaluates every configured expectation.
//
// Fixture construction failures and execution failures (parse error,
// pipe I/O failure, executor fault, timeout) are returned as errors with
// no Result. Expectation mismatches do not produce an error: they are
// accumulated in Result.Failures so one run surfaces every discrepancy.
//
// The caller owns the sandbox lifetime and must call Close when the
// scenario is discarded.
//
// A scenario configured with GoldenStdout cannot be run this way: golden
// comparison needs a testing.T, and silently skipping the stdout check
// would let the scenario false-pass. Use RunT instead.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	if b.goldenName != "" {
		return nil, fmt.Errorf("scenario with golden stdout %q must be run through RunT", b.goldenName)
	}
	return b.run(ctx)
}

func (b *Builder) run(ctx context.Context) (*Result, error) {
	if b.buildErr != nil {
		return nil, fmt.Errorf("constructing scenario fixtures: %w", b.buildErr)
	}
	if b.ran {
		return nil, ErrAlreadyRun
	}
	b.ran = true

	program, err := b.parser.Parse(b.command)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", b.command, err)
	}

	cwd := os.TempDir()
	if b.sandbox != nil {
		cwd = b.sandbox.Path()
	}

	// Supply the executor's entire stdin and release the write end before
	// anything can wait on the executor. Holding the write end open while
	// awaiting output would deadlock: the executor blocks on stdin, the
	// harness blocks on the executor.
	stdinReader, stdinWriter := pipe.New()
	if len(b.stdin) > 0 {
		if _, err := stdinWriter.Write(b.stdin); err != nil {
			return nil, fmt.Errorf("writing stdin for %q: %w", b.command, err)
		}
	}
	_ = stdinWriter.Close()

	// Both collectors must be draining before the executor is relied upon
	// to finish, or a full stdout/stderr buffer would block it forever.
	stdoutReader, stdoutWriter := pipe.New()
	stderrReader, stderrWriter := pipe.New()
	stdoutHandle := collect.Start(stdoutReader)
	stderrHandle := collect.Start(stderrReader)

	runCtx := ctx
	if b.deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, b.deadline)
		defer cancel()
	}

	b.logger.Debug("running scenario", "command", b.command, "cwd", cwd, "stdin_bytes", len(b.stdin))

	var exitCode int
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		code, err := b.executor.Execute(groupCtx, program, ExecIO{
			Env:    b.env,
			Dir:    cwd,
			Stdin:  stdinReader,
			Stdout: stdoutWriter,
			Stderr: stderrWriter,
		})
		exitCode = code
		return err
	})
	execErr := group.Wait()

	// The executor contract says it closed both write ends already;
	// re-closing is idempotent and guarantees the collectors observe
	// end-of-stream even when a faulty executor returned without closing.
	_ = stdoutWriter.Close()
	_ = stderrWriter.Close()

	stdoutText, stdoutErr := stdoutHandle.Wait()
	stderrText, stderrErr := stderrHandle.Wait()

	if execErr != nil {
		if errors.Is(execErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("command %q timed out after %s: %w", b.command, b.deadline, execErr)
		}
		return nil, fmt.Errorf("executing %q: %w", b.command, execErr)
	}
	if stdoutErr != nil {
		return nil, fmt.Errorf("capturing stdout of %q: %w", b.command, stdoutErr)
	}
	if stderrErr != nil {
		return nil, fmt.Errorf("capturing stderr of %q: %w", b.command, stderrErr)
	}

	b.logger.Debug("scenario finished", "command", b.command, "exit_code", exitCode)

	res := newResult()
	res.ExitCode = exitCode
	res.Stdout = stdoutText
	res.Stderr = stderrText
	if b.sandbox != nil {
		res.SandboxPath = b.sandbox.Path()
	}

	b.compareOutputs(res)
	evaluateFileAssertions(b.command, cwd, b.assertions, res)
	return res, nil
}

// RunT runs the scenario inside a test, failing t with every accumulated
// mismatch. Execution and construction failures fail the test
// immediately. Sandbox cleanup is registered on t.
func (b *Builder) RunT(t *testing.T) *Result {
	t.Helper()
	t.Cleanup(func() { _ = b.Close() })

	res, err := b.run(context.Background())
	if err != nil {
		t.Fatalf("scenario did not complete: %v", err)
	}
	if b.goldenName != "" {
		assertGoldenStdout(t, b.goldenName, res.Stdout)
	}
	for _, failure := range res.Failures {
		t.Error(failure)
	}
	return res
}

// compareOutputs checks stderr, stdout, and the exit code against the
// configured expectations, substituting the sandbox sentinel first.
func (b *Builder) compareOutputs(res *Result) {
	marker := noSandboxMarker
	if b.sandbox != nil {
		marker = b.sandbox.Path()
	}

	wantStderr := strings.ReplaceAll(b.wantStderr, SandboxToken, marker)
	if res.Stderr != wantStderr {
		res.AddFailure("%v", &AssertionError{
			Command:  b.command,
			Check:    "stderr",
			Expected: fmt.Sprintf("%q", wantStderr),
			Actual:   fmt.Sprintf("%q", res.Stderr),
		})
	}

	// Golden-stdout scenarios compare against a golden file in RunT
	// instead of a literal expectation.
	if b.goldenName == "" {
		wantStdout := strings.ReplaceAll(b.wantStdout, SandboxToken, marker)
		if res.Stdout != wantStdout {
			res.AddFailure("%v", &AssertionError{
				Command:  b.command,
				Check:    "stdout",
				Expected: fmt.Sprintf("%q", wantStdout),
				Actual:   fmt.Sprintf("%q", res.Stdout),
			})
		}
	}

	if res.ExitCode != b.wantExitCode {
		res.AddFailure("%v", &AssertionError{
			Command:  b.command,
			Check:    "exit code",
			Expected: fmt.Sprintf("%d", b.wantExitCode),
			Actual:   fmt.Sprintf("%d", res.ExitCode),
		})
	}
}
