package harness

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenStdout swaps the literal stdout expectation for a golden file
// named testdata/golden/<name>.golden, relative to the test's package.
// Stderr, exit-code, and filesystem checks still apply. Golden
// comparison needs a testing.T, so a scenario built with GoldenStdout
// must be run through RunT; Run rejects it with an error.
//
// Regenerate golden files with:
//
//	go test ./... -update
func (b *Builder) GoldenStdout(name string) *Builder {
	b.goldenName = name
	return b
}

func assertGoldenStdout(t *testing.T, name, stdout string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(stdout))
}
