package harness_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shellharness/harness"
	"shellharness/internal/testutil"
)

func TestRun_MatchingExpectationsPass(t *testing.T) {
	exec := &testutil.ScriptedExecutor{Stdout: []byte("foo\n")}
	b := harness.New(exec, exec).
		Command("echo foo").
		ExpectStdout("foo\n")
	t.Cleanup(func() { _ = b.Close() })

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "foo\n", res.Stdout)
	assert.Equal(t, "echo foo", exec.ObservedCommand())
}

func TestRun_NonzeroExitAndStderr(t *testing.T) {
	exec := &testutil.ScriptedExecutor{
		Stderr:   []byte("error: bad arg\n"),
		ExitCode: 1,
	}
	harness.New(exec, exec).
		Command("frob --bad-arg").
		ExpectExitCode(1).
		ExpectStderr("error: bad arg\n").
		RunT(t)
}

func TestRun_AccumulatesEveryFailure(t *testing.T) {
	exec := &testutil.ScriptedExecutor{
		Stdout:   []byte("actual out"),
		Stderr:   []byte("actual err"),
		ExitCode: 3,
	}
	b := harness.New(exec, exec).
		Command("misbehave").
		ExpectStdout("wanted out").
		ExpectStderr("wanted err").
		ExpectExitCode(0).
		AssertExists("never-created.txt")
	t.Cleanup(func() { _ = b.Close() })

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Failures, 4)
	for _, failure := range res.Failures {
		assert.Contains(t, failure, "misbehave")
	}
}

func TestRun_NoStdinMeansImmediateEOF(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	b := harness.New(exec, exec).Command("read-nothing")
	t.Cleanup(func() { _ = b.Close() })

	errs := make(chan error, 1)
	go func() {
		_, err := b.Run(context.Background())
		errs <- err
	}()

	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("executor hung waiting for stdin that was never configured")
	}
	assert.Empty(t, exec.ObservedStdin())
}

func TestRun_StdinIsFullyDelivered(t *testing.T) {
	exec := &testutil.ScriptedExecutor{EchoStdin: true}
	harness.New(exec, exec).
		Command("cat").
		Stdin("line one\nline two\n").
		ExpectStdout("line one\nline two\n").
		RunT(t)

	assert.Equal(t, "line one\nline two\n", string(exec.ObservedStdin()))
}

func TestRun_MultiPartExpectationsAccumulate(t *testing.T) {
	exec := &testutil.ScriptedExecutor{Stdout: []byte("part one\npart two\n")}
	harness.New(exec, exec).
		Command("emit-parts").
		ExpectStdout("part one\n").
		ExpectStdout("part two\n").
		RunT(t)
}

func TestRun_EnvOverrideIsScenarioLocal(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	harness.New(exec, exec).
		Command("env").
		EnvVar("HARNESS_SCENARIO_VAR", "42").
		RunT(t)

	env := exec.ObservedEnv()
	assert.Equal(t, "42", env["HARNESS_SCENARIO_VAR"])
	// The override never leaks into the real process environment.
	_, leaked := os.LookupEnv("HARNESS_SCENARIO_VAR")
	assert.False(t, leaked)

	// A second scenario without the override must not see it.
	second := &testutil.ScriptedExecutor{}
	harness.New(second, second).Command("env").RunT(t)
	_, ok := second.ObservedEnv()["HARNESS_SCENARIO_VAR"]
	assert.False(t, ok)
}

func TestRun_ExecutorSeesAmbientEnvironment(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	harness.New(exec, exec).Command("env").RunT(t)
	assert.NotEmpty(t, exec.ObservedEnv()["PATH"])
}

func TestRun_SandboxIsWorkingDirectory(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	b := harness.New(exec, exec).
		Command("pwd").
		File("fixture.txt", "data\n")
	res := b.RunT(t)

	require.NotEmpty(t, res.SandboxPath)
	assert.Equal(t, res.SandboxPath, exec.ObservedDir())

	data, err := os.ReadFile(filepath.Join(b.SandboxPath(), "fixture.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data\n", string(data))
}

func TestRun_SandboxProvisionIsIdempotent(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	b := harness.New(exec, exec).Command("pwd").EnsureSandbox()
	t.Cleanup(func() { _ = b.Close() })

	first := b.SandboxPath()
	require.NotEmpty(t, first)
	b.EnsureSandbox().Directory("sub")
	assert.Equal(t, first, b.SandboxPath())
}

func TestRun_NoSandboxUsesTempDirAndEmptyPath(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	b := harness.New(exec, exec).Command("pwd")
	res := b.RunT(t)

	assert.Empty(t, res.SandboxPath)
	assert.Equal(t, os.TempDir(), exec.ObservedDir())
}

func TestRun_SentinelSubstitutedWithSandboxPath(t *testing.T) {
	exec := &testutil.ScriptedExecutor{EchoDir: true}
	harness.New(exec, exec).
		Command("pwd").
		EnsureSandbox().
		ExpectStdout("$TEMP_DIR\n").
		RunT(t)
}

func TestRun_SentinelSubstitutionCommutes(t *testing.T) {
	exec := &testutil.ScriptedExecutor{EchoDir: true}
	b := harness.New(exec, exec).
		Command("pwd").
		EnsureSandbox().
		ExpectStdout("$TEMP_DIR\n")
	res := b.RunT(t)

	// Substituting manually and comparing raw output agrees with the
	// harness's own comparison.
	assert.Equal(t, b.SandboxPath()+"\n", res.Stdout)
}

func TestRun_SentinelWithoutSandboxUsesMarker(t *testing.T) {
	exec := &testutil.ScriptedExecutor{Stderr: []byte("cwd was NO_TEMP_DIR\n")}
	harness.New(exec, exec).
		Command("whereami").
		ExpectStderr("cwd was $TEMP_DIR\n").
		RunT(t)
}

func TestRun_LossyDecodingOfInvalidOutput(t *testing.T) {
	exec := &testutil.ScriptedExecutor{Stdout: []byte{'a', 0xff, 'b'}}
	harness.New(exec, exec).
		Command("emit-garbage").
		ExpectStdout("a�b").
		RunT(t)
}

func TestRun_ParseFailureIsHardError(t *testing.T) {
	exec := &testutil.ScriptedExecutor{FailParse: true}
	b := harness.New(exec, exec).Command("if then fi")
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrParse)
	assert.Contains(t, err.Error(), "if then fi")
	assert.Equal(t, 0, exec.ExecCount(), "a scenario that fails to parse must never execute")
}

func TestRun_ExecutorFaultIsHardError(t *testing.T) {
	fault := errors.New("interpreter blew up")
	exec := &testutil.ScriptedExecutor{Fault: fault}
	b := harness.New(exec, exec).Command("boom")
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fault)
}

func TestRun_ConstructionErrorAbortsBeforeExecution(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	b := harness.New(exec, exec).
		Command("never-runs").
		File("missing-parent/file.txt", "x")
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constructing scenario fixtures")
	assert.Equal(t, 0, exec.ExecCount())
}

func TestRun_IsOneShot(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	b := harness.New(exec, exec).Command("once")
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Run(context.Background())
	require.NoError(t, err)

	_, err = b.Run(context.Background())
	assert.ErrorIs(t, err, harness.ErrAlreadyRun)
}

func TestRun_DeadlineReportsTimeout(t *testing.T) {
	exec := &testutil.ScriptedExecutor{BlockUntilCancel: true}
	b := harness.New(exec, exec).
		Command("sleep forever").
		Deadline(50 * time.Millisecond)
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, err.Error(), "sleep forever")
}

func TestClose_RemovesSandboxAfterFailedRun(t *testing.T) {
	exec := &testutil.ScriptedExecutor{ExitCode: 1}
	b := harness.New(exec, exec).
		Command("fail").
		File("fixture.txt", "x")

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Pass)

	path := b.SandboxPath()
	require.NotEmpty(t, path)
	require.NoError(t, b.Close())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
