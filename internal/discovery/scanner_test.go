package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for file, content := range files {
		fullPath := filepath.Join(root, file)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", file, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create file %s: %v", file, err)
		}
	}
}

func TestScanner_Scan(t *testing.T) {
	// Create a temporary module for testing
	tmpDir, err := os.MkdirTemp("", "ctrf-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	writeFiles(t, tmpDir, map[string]string{
		"go.mod":                   "module example.com/app\n\ngo 1.22\n",
		"app_test.go":              "package app",
		"store/store_test.go":      "package store",
		"store/cache_test.go":      "package store",
		"store/store.go":           "package store",
		"internal/api/api_test.go": "package api",
		"vendor/dep/dep_test.go":   "package dep",
		"testdata/fixture_test.go": "package fixture",
		".hidden/h_test.go":        "package h",
		"nested/go.mod":            "module example.com/nested\n",
		"nested/n_test.go":         "package nested",
		"nolib/main.go":            "package main",
	})

	scanner := NewScanner([]string{"vendor", "node_modules"})

	t.Run("scans test packages correctly", func(t *testing.T) {
		results, err := scanner.Scan(tmpDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{"example.com/app", "example.com/app/internal/api", "example.com/app/store"}
		if len(results) != len(expected) {
			t.Fatalf("expected %d packages, got %d: %+v", len(expected), len(results), results)
		}
		for i, pkg := range results {
			if pkg.ImportPath != expected[i] {
				t.Errorf("expected %s, got %s", expected[i], pkg.ImportPath)
			}
		}
		if len(results[2].Files) != 2 {
			t.Errorf("expected 2 test files in store, got %d", len(results[2].Files))
		}
	})

	t.Run("scans from a sub directory", func(t *testing.T) {
		results, err := scanner.Scan(filepath.Join(tmpDir, "store"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].ImportPath != "example.com/app/store" {
			t.Errorf("unexpected packages: %+v", results)
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		_, err := scanner.Scan("/non/existent/path")
		if err == nil {
			t.Error("expected error for non-existent directory")
		}
	})

	t.Run("returns error for file instead of directory", func(t *testing.T) {
		_, err := scanner.Scan(filepath.Join(tmpDir, "go.mod"))
		if err == nil {
			t.Error("expected error for file path")
		}
	})
}

func TestScanner_ScanWithoutModule(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"a_test.go": "package a"})

	// Only fails when no go.mod exists anywhere above the temp dir
	if _, _, err := findModule(tmpDir); err == nil {
		t.Skip("a go.mod exists above the temp dir")
	}
	if _, err := NewScanner(nil).Scan(tmpDir); err == nil {
		t.Error("expected error without go.mod")
	}
}
