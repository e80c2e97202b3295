// Package testutil provides deterministic test doubles for the harness.
package testutil

import (
	"context"
	"errors"
	"maps"
	"sync"

	"shellharness/harness"
)

// ErrParse is returned by a ScriptedExecutor configured to fail parsing.
var ErrParse = errors.New("scripted parse failure")

// ScriptedExecutor implements harness.Parser and harness.Executor with
// predetermined behavior, so orchestration tests stay independent of any
// real interpreter. It records the command, environment, working
// directory, and stdin it observed for later inspection.
//
// The zero value parses everything, writes nothing, and exits 0.
type ScriptedExecutor struct {
	// Stdout and Stderr are written verbatim to the respective pipes.
	Stdout []byte
	Stderr []byte

	// ExitCode is returned as the exit code.
	ExitCode int

	// FailParse makes Parse fail with ErrParse.
	FailParse bool

	// Fault is returned by Execute as an internal fault, after output
	// has been written.
	Fault error

	// EchoStdin writes everything read from stdin to stdout before the
	// configured Stdout bytes.
	EchoStdin bool

	// EchoDir writes the working directory followed by a newline to
	// stdout before the configured Stdout bytes.
	EchoDir bool

	// BlockUntilCancel makes Execute wait for context cancellation and
	// return the context's error, simulating a hung command.
	BlockUntilCancel bool

	mu         sync.Mutex
	gotCommand string
	gotEnv     map[string]string
	gotDir     string
	gotStdin   []byte
	execCount  int
}

// Parse records the command text and returns it unchanged as the
// program.
func (e *ScriptedExecutor) Parse(command string) (harness.Program, error) {
	e.mu.Lock()
	e.gotCommand = command
	e.mu.Unlock()
	if e.FailParse {
		return nil, ErrParse
	}
	return command, nil
}

// Execute performs the scripted behavior. Like a well-behaved executor
// it drains stdin and closes both output write ends before returning.
func (e *ScriptedExecutor) Execute(ctx context.Context, program harness.Program, stdio harness.ExecIO) (int, error) {
	defer stdio.Stdout.Close()
	defer stdio.Stderr.Close()

	stdin, err := stdio.Stdin.ReadToEnd()
	if err != nil {
		return -1, err
	}

	e.mu.Lock()
	e.gotEnv = maps.Clone(stdio.Env)
	e.gotDir = stdio.Dir
	e.gotStdin = stdin
	e.execCount++
	e.mu.Unlock()

	if e.BlockUntilCancel {
		<-ctx.Done()
		return -1, ctx.Err()
	}

	if e.EchoDir {
		if _, err := stdio.Stdout.WriteString(stdio.Dir + "\n"); err != nil {
			return -1, err
		}
	}
	if e.EchoStdin && len(stdin) > 0 {
		if _, err := stdio.Stdout.Write(stdin); err != nil {
			return -1, err
		}
	}
	if len(e.Stdout) > 0 {
		if _, err := stdio.Stdout.Write(e.Stdout); err != nil {
			return -1, err
		}
	}
	if len(e.Stderr) > 0 {
		if _, err := stdio.Stderr.Write(e.Stderr); err != nil {
			return -1, err
		}
	}
	if e.Fault != nil {
		return -1, e.Fault
	}
	return e.ExitCode, nil
}

// ObservedCommand returns the last command text passed to Parse.
func (e *ScriptedExecutor) ObservedCommand() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gotCommand
}

// ObservedEnv returns the environment the executor ran with.
func (e *ScriptedExecutor) ObservedEnv() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.gotEnv)
}

// ObservedDir returns the working directory the executor ran in.
func (e *ScriptedExecutor) ObservedDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gotDir
}

// ObservedStdin returns everything the executor read from stdin.
func (e *ScriptedExecutor) ObservedStdin() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gotStdin
}

// ExecCount returns how many times Execute ran.
func (e *ScriptedExecutor) ExecCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.execCount
}
