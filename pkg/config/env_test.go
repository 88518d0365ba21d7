package config_test

import (
	"os"
	"testing"
)

// unsetAll removes keys for the rest of the test. Call t.Setenv on each key
// first so the original values are restored afterwards.
func unsetAll(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}
}
