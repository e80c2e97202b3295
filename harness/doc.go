// Package harness builds and runs test scenarios against an embeddable
// shell-command interpreter.
//
// A scenario bundles command text, sandbox fixtures, environment
// overrides, stdin bytes, and expectations. Running it creates three
// pipes, supplies and releases stdin, starts two collectors draining
// stdout and stderr, invokes the executor concurrently, and compares
// exit code, outputs, and resulting filesystem state against the
// configured expectations.
//
// # Usage
//
//	func TestEcho(t *testing.T) {
//	    sh := shellexec.New()
//	    harness.New(sh, sh).
//	        Command("echo foo").
//	        ExpectStdout("foo\n").
//	        RunT(t)
//	}
//
// # Scenario files
//
// Scenarios can also live in YAML files:
//
//	name: redirect_to_subdir
//	description: "stdout redirection creates the target file"
//	command: mkdir sub && echo hi > sub/out.txt
//	expect:
//	  exit_code: 0
//	assertions:
//	  - type: exists
//	    path: sub/out.txt
//	  - type: text_equals
//	    path: sub/out.txt
//	    text: "hi\n"
//
// Supported assertion types are exists, not_exists, and text_equals,
// evaluated in declaration order against the sandbox after the run.
//
// # Failure accumulation
//
// All configured checks are evaluated even after an earlier one fails;
// Result.Failures surfaces every discrepancy from a single run. This is
// deliberate: rerunning a shell scenario to discover the next mismatch
// is far more expensive than reading one richer report.
//
// # Sandbox sentinel
//
// Expected stdout/stderr text may contain the $TEMP_DIR token, replaced
// at comparison time with the scenario's canonical sandbox path (or
// NO_TEMP_DIR when no sandbox was provisioned), so expected-output
// literals stay machine independent.
package harness
