package namepool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeNames(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "names.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantLen int
		wantErr bool
	}{
		{"bare array", `["Rita", "Amit", "Priya"]`, 3, false},
		{"wrapped object", `{"names": ["Rita", "Amit"]}`, 2, false},
		{"blank entries dropped", `["Rita", "  ", ""]`, 1, false},
		{"empty array", `[]`, 0, true},
		{"all blank", `["", " "]`, 0, true},
		{"invalid json", `{nope`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := Load(writeNames(t, tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Load succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if pool.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", pool.Len(), tt.wantLen)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}

func TestPick(t *testing.T) {
	pool, err := Load(writeNames(t, `["Rita"]`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	name, ok := pool.Pick("")
	if !ok || name != "Rita" {
		t.Errorf("Pick(\"\") = %q, %v, want Rita, true", name, ok)
	}

	name, ok = pool.Pick("Agarwal")
	if !ok || name != "Rita Agarwal" {
		t.Errorf("Pick(suffix) = %q, %v, want Rita Agarwal, true", name, ok)
	}
}

func TestPickDrawsFromList(t *testing.T) {
	pool, err := Load(writeNames(t, `["Rita", "Amit", "Priya"]`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	valid := map[string]bool{"Rita": true, "Amit": true, "Priya": true}
	for i := 0; i < 50; i++ {
		name, ok := pool.Pick("")
		if !ok {
			t.Fatal("Pick returned no name")
		}
		if !valid[name] {
			t.Fatalf("Pick returned %q, not in the loaded list", name)
		}
	}
}

func TestReloadReplacesNames(t *testing.T) {
	path := writeNames(t, `["Rita"]`)
	pool, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte(`["Amit", "Priya"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pool.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if pool.Len() != 2 {
		t.Errorf("Len() after reload = %d, want 2", pool.Len())
	}
	name, _ := pool.Pick("")
	if !strings.HasPrefix(name, "Amit") && !strings.HasPrefix(name, "Priya") {
		t.Errorf("Pick after reload = %q, want a new-list name", name)
	}
}

func TestReloadKeepsOldListOnError(t *testing.T) {
	path := writeNames(t, `["Rita"]`)
	pool, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pool.reload(); err == nil {
		t.Fatal("reload of empty list succeeded, want error")
	}
	if name, ok := pool.Pick(""); !ok || name != "Rita" {
		t.Errorf("Pick after failed reload = %q, %v, want Rita, true", name, ok)
	}
}
