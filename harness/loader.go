package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is the YAML file form of one test case. It lets suites keep
// scenario corpora as data instead of code; LoadScenario plus Builder
// turn a file into a runnable scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Command is the opaque command text handed to the parser at run time.
	Command string `yaml:"command"`

	// Stdin is supplied literally on the executor's stdin.
	Stdin string `yaml:"stdin,omitempty"`

	// Env lists scenario-local environment overrides.
	Env map[string]string `yaml:"env,omitempty"`

	// Dirs and Files are fixtures created under the sandbox before the
	// run. Dirs are created first.
	Dirs  []string          `yaml:"dirs,omitempty"`
	Files map[string]string `yaml:"files,omitempty"`

	// Expect holds the output and exit-code expectations. Expected text
	// may contain the $TEMP_DIR sentinel.
	Expect Expectation `yaml:"expect,omitempty"`

	// Assertions are evaluated against the sandbox after the run, in
	// declaration order.
	Assertions []FileAssertion `yaml:"assertions,omitempty"`
}

// Expectation is the expected outcome block of a scenario file.
type Expectation struct {
	ExitCode int    `yaml:"exit_code,omitempty"`
	Stdout   string `yaml:"stdout,omitempty"`
	Stderr   string `yaml:"stderr,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos like "assertion:" surface immediately instead of
// silently passing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Builder materializes the scenario into a runnable builder bound to the
// given parser and executor. Fixture keys are applied in sorted order so
// materialization is deterministic.
func (s *Scenario) Builder(parser Parser, executor Executor) *Builder {
	b := New(parser, executor).
		Command(s.Command).
		Stdin(s.Stdin).
		ExpectExitCode(s.Expect.ExitCode).
		ExpectStdout(s.Expect.Stdout).
		ExpectStderr(s.Expect.Stderr)

	envKeys := make([]string, 0, len(s.Env))
	for key := range s.Env {
		envKeys = append(envKeys, key)
	}
	sort.Strings(envKeys)
	for _, key := range envKeys {
		b.EnvVar(key, s.Env[key])
	}

	for _, dir := range s.Dirs {
		b.Directory(dir)
	}

	fileKeys := make([]string, 0, len(s.Files))
	for path := range s.Files {
		fileKeys = append(fileKeys, path)
	}
	sort.Strings(fileKeys)
	for _, path := range fileKeys {
		b.File(path, s.Files[path])
	}

	b.assertions = append(b.assertions, s.Assertions...)
	if len(s.Assertions) > 0 {
		b.EnsureSandbox()
	}
	return b
}

// validateScenario checks that required fields are present and that
// every assertion is well formed.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Command == "" {
		return fmt.Errorf("command is required")
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertTypeExists, AssertTypeNotExists:
			if a.Path == "" {
				return fmt.Errorf("assertions[%d]: path is required for %s", i, a.Type)
			}
			if a.Text != "" {
				return fmt.Errorf("assertions[%d]: text is only valid for %s", i, AssertTypeTextEquals)
			}
		case AssertTypeTextEquals:
			if a.Path == "" {
				return fmt.Errorf("assertions[%d]: path is required for %s", i, a.Type)
			}
		case "":
			return fmt.Errorf("assertions[%d]: type is required", i)
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}
	return nil
}
