//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// binaryPath returns the path to the built CLI binary
func binaryPath(t *testing.T) string {
	t.Helper()
	paths := []string{
		"../tira-orch",
		"./tira-orch",
		filepath.Join(os.Getenv("GOPATH"), "bin", "tira-orch"),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			abs, _ := filepath.Abs(p)
			return abs
		}
	}

	t.Log("Binary not found, building...")
	cmd := exec.Command("go", "build", "-o", "../tira-orch", "../cmd/tira-orch")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}

	abs, _ := filepath.Abs("../tira-orch")
	return abs
}

// createTestConfig creates a temporary config file for testing
func createTestConfig(t *testing.T, dbPath string) string {
	t.Helper()
	configPath := TempConfigPath(t)

	config := `[general]
database_path = "` + dbPath + `"
max_concurrent_sessions = 2
headless = true

[web]
port = 8005
host = "127.0.0.1"
`
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return configPath
}

// TestCLI_Help verifies the command tree is wired up
func TestCLI_Help(t *testing.T) {
	binary := binaryPath(t)

	cmd := exec.Command(binary, "--help")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("help failed: %v\n%s", err, out)
	}

	output := string(out)
	for _, sub := range []string{"serve", "order", "checkpoint", "status", "logs", "accounts"} {
		if !strings.Contains(output, sub) {
			t.Errorf("Expected %q in help output, got: %s", sub, output)
		}
	}
}

// TestCLI_AccountsImport tests the accounts import command
func TestCLI_AccountsImport(t *testing.T) {
	binary := binaryPath(t)
	dbPath := TempDBPath(t)
	configPath := createTestConfig(t, dbPath)
	seedPath := WriteSeedFile(t)

	cmd := exec.Command(binary, "accounts", "import", seedPath, "--config", configPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("import failed: %v\n%s", err, out)
	}

	if !strings.Contains(string(out), "Imported 2 accounts") {
		t.Errorf("Expected 'Imported 2 accounts' in output, got: %s", out)
	}

	// Importing again appends; the command is not idempotent by design.
	cmd = exec.Command(binary, "accounts", "import", seedPath, "--config", configPath)
	out, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("second import failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "Imported 2 accounts") {
		t.Errorf("Expected 'Imported 2 accounts' in output, got: %s", out)
	}
}

// TestCLI_Logs tests the logs command against an empty database
func TestCLI_Logs(t *testing.T) {
	binary := binaryPath(t)
	dbPath := TempDBPath(t)
	configPath := createTestConfig(t, dbPath)

	cmd := exec.Command(binary, "logs", "user_1_deadbeef", "--config", configPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("logs failed: %v\n%s", err, out)
	}

	if !strings.Contains(string(out), "No logs for session") {
		t.Errorf("Expected 'No logs for session' in output, got: %s", out)
	}
}

// TestCLI_OrderRejectsBadRange verifies dispatch validation happens before
// any account is touched
func TestCLI_OrderRejectsBadRange(t *testing.T) {
	binary := binaryPath(t)
	dbPath := TempDBPath(t)
	configPath := createTestConfig(t, dbPath)

	cmd := exec.Command(binary, "order",
		"--start", "5", "--end", "1",
		"--product", "https://example.com/p/1",
		"--address", "addr-test",
		"--config", configPath)
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("order with inverted range should fail, got: %s", out)
	}

	if !strings.Contains(string(out), "invalid account range") {
		t.Errorf("Expected range error in output, got: %s", out)
	}
}
