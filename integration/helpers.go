//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"
)

// TempDBPath creates a temporary database path for testing
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// TempConfigPath creates a temporary config file path for testing
func TempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.toml")
}

// WriteSeedFile writes a YAML seed file with a couple of test accounts
func WriteSeedFile(t *testing.T) string {
	t.Helper()
	seed := `
accounts:
  - name: Test Account One
    email: one@example.com
    cookies:
      - name: f.session
        value: test-session-1
  - name: Test Account Two
    email: two@example.com
    cookies: "f.session=test-session-2"
addresses:
  - id: addr-test
    full_name: Test Person
    phone: "9999999999"
    line1: 1 Test Road
    city: Mumbai
    state: MH
    pincode: "400001"
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}
	return path
}
