package discovery

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"ctrf/internal/domain"
)

// Scanner scans for Go packages that contain test files
type Scanner struct {
	skipDirs map[string]bool
}

// NewScanner creates a new Scanner with the given directories to skip
func NewScanner(skipDirs []string) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{skipDirs: skipMap}
}

// Scan finds every package with *_test.go files under root.
// Import paths are derived from the nearest go.mod at or above root.
func (s *Scanner) Scan(root string) ([]domain.Package, error) {
	// Clean and validate the root path
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test path is not a directory: %s", root)
	}

	modDir, modPath, err := findModule(root)
	if err != nil {
		return nil, err
	}

	byDir := make(map[string]*domain.Package)
	err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if p != root {
				// Skip hidden and underscore directories, like the go tool does
				if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" {
					return filepath.SkipDir
				}
				if s.skipDirs[name] {
					return filepath.SkipDir
				}
				// Nested modules are built separately
				if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		dir := filepath.Dir(p)
		pkg, ok := byDir[dir]
		if !ok {
			pkg = &domain.Package{Dir: dir, ImportPath: importPath(modDir, modPath, dir)}
			byDir[dir] = pkg
		}
		pkg.Files = append(pkg.Files, d.Name())
		return nil
	})
	if err != nil {
		return nil, err
	}

	packages := make([]domain.Package, 0, len(byDir))
	for _, pkg := range byDir {
		packages = append(packages, *pkg)
	}
	sort.Slice(packages, func(i, j int) bool {
		return packages[i].ImportPath < packages[j].ImportPath
	})
	return packages, nil
}

// findModule walks up from dir to the closest go.mod and returns its directory and module path
func findModule(dir string) (string, string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for d := abs; ; d = filepath.Dir(d) {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		if err == nil {
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return "", "", fmt.Errorf("no module directive in %s", filepath.Join(d, "go.mod"))
			}
			return d, modPath, nil
		}
		if filepath.Dir(d) == d {
			return "", "", fmt.Errorf("no go.mod found above %s", dir)
		}
	}
}

func importPath(modDir, modPath, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return modPath
	}
	rel, err := filepath.Rel(modDir, abs)
	if err != nil || rel == "." {
		return modPath
	}
	return path.Join(modPath, filepath.ToSlash(rel))
}
