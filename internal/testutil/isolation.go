package testutil

import (
	"os"
	"strings"
	"testing"
)

// EnvPrefix matches the variables the configuration reads.
const EnvPrefix = "MICROPODS_"

// trackedEnv lists the MICROPODS_* variables currently set.
func trackedEnv() map[string]*string {
	snapshot := map[string]*string{}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			val := v
			snapshot[k] = &val
		}
	}
	return snapshot
}

func restore(snapshot map[string]*string) {
	for k := range trackedEnv() {
		if _, ok := snapshot[k]; !ok {
			_ = os.Unsetenv(k)
		}
	}
	for k, v := range snapshot {
		if v == nil {
			_ = os.Unsetenv(k)
		} else {
			_ = os.Setenv(k, *v)
		}
	}
}

// WithCleanEnv runs fn with every MICROPODS_* variable unset and restores
// them afterwards.
func WithCleanEnv(fn func()) {
	snapshot := trackedEnv()
	for k := range snapshot {
		_ = os.Unsetenv(k)
	}
	defer restore(snapshot)
	fn()
}

// Isolate unsets every MICROPODS_* variable for the rest of the test and
// restores them through t.Cleanup. Variables the test sets are removed again.
// Tests calling Isolate must not run in parallel.
func Isolate(t *testing.T) {
	t.Helper()
	snapshot := trackedEnv()
	for k := range snapshot {
		_ = os.Unsetenv(k)
	}
	t.Cleanup(func() { restore(snapshot) })
}
