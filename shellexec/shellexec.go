// Package shellexec adapts the mvdan.cc/sh interpreter to the harness's
// Parser and Executor interfaces, giving test suites a real embeddable
// shell to run scenarios against.
package shellexec

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"shellharness/harness"
)

// Shell parses and executes shell command text in-process. A Shell is
// stateless; it is safe to share one across concurrently running
// scenarios because every Execute builds its own interpreter.
type Shell struct {
	variant syntax.LangVariant
}

// New returns a Shell speaking the Bash dialect.
func New() *Shell {
	return &Shell{variant: syntax.LangBash}
}

// NewPOSIX returns a Shell restricted to the POSIX dialect.
func NewPOSIX() *Shell {
	return &Shell{variant: syntax.LangPOSIX}
}

// Parse turns command text into a shell program. The parse failure of a
// syntactically invalid command surfaces here, before anything runs.
func (s *Shell) Parse(command string) (harness.Program, error) {
	parser := syntax.NewParser(syntax.Variant(s.variant))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("parsing shell source: %w", err)
	}
	return file, nil
}

// Execute runs a parsed program against the supplied environment,
// working directory, and pipes, returning its exit code. Both output
// write ends are closed on the way out, whatever the outcome, which is
// what unblocks the harness's collectors.
func (s *Shell) Execute(ctx context.Context, program harness.Program, stdio harness.ExecIO) (int, error) {
	defer stdio.Stdout.Close()
	defer stdio.Stderr.Close()

	file, ok := program.(*syntax.File)
	if !ok {
		return -1, fmt.Errorf("program of type %T was not produced by this shell's parser", program)
	}

	runner, err := interp.New(
		interp.StdIO(stdio.Stdin, stdio.Stdout, stdio.Stderr),
		interp.Dir(stdio.Dir),
		interp.Env(expand.ListEnviron(flattenEnv(stdio.Env)...)),
	)
	if err != nil {
		return -1, fmt.Errorf("creating shell interpreter: %w", err)
	}

	err = runner.Run(ctx, file)
	if status, ok := interp.IsExitStatus(err); ok {
		return int(status), nil
	}
	if err != nil {
		return -1, fmt.Errorf("running shell program: %w", err)
	}
	return 0, nil
}

// flattenEnv converts the environment map into the sorted KEY=value list
// expand.ListEnviron expects.
func flattenEnv(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for key, value := range env {
		list = append(list, key+"="+value)
	}
	sort.Strings(list)
	return list
}
