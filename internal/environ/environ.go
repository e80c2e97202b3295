// Package environ captures the ambient process environment once and
// derives per-scenario override copies from it.
package environ

import (
	"maps"
	"os"
	"runtime"
	"strings"
	"sync"
)

var (
	captureOnce sync.Once
	base        map[string]string
)

// Capture returns an independent copy of the process environment as it
// looked the first time Capture was called. Later mutations of the real
// environment are deliberately invisible: every scenario derives from the
// same immutable snapshot, so concurrently running scenarios cannot
// interfere with each other.
func Capture() map[string]string {
	captureOnce.Do(func() {
		environ := os.Environ()
		base = make(map[string]string, len(environ))
		for _, kv := range environ {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			base[Normalize(key)] = value
		}
	})
	return maps.Clone(base)
}

// Normalize case-normalizes an environment key. Windows is the one
// platform with case-insensitive environment lookups, and the same
// variable is sometimes observed as "Path" and sometimes as "PATH" there;
// uppercasing once at capture prevents spurious duplicate keys. Elsewhere
// keys pass through untouched.
func Normalize(key string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(key)
	}
	return key
}

// WithOverride returns a copy of env with key set to value. The input map
// is never mutated, so a shared base can safely feed many scenarios.
func WithOverride(env map[string]string, key, value string) map[string]string {
	derived := maps.Clone(env)
	if derived == nil {
		derived = make(map[string]string, 1)
	}
	derived[Normalize(key)] = value
	return derived
}
