package discovery

import (
	"path"
	"path/filepath"
	"strings"

	"ctrf/internal/domain"
)

// Filter filters packages by import path pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName filters packages by pattern using wildcard matching on the import path.
// Supports patterns like "*/store" or "*payment*". A pattern without wildcards
// matches as a substring.
func (f *Filter) FilterByName(packages []domain.Package, pattern string) []domain.Package {
	if pattern == "" {
		return packages
	}

	var filtered []domain.Package

	for _, pkg := range packages {
		name := pkg.ImportPath

		// Try path.Match first (supports * and ? wildcards within one segment)
		if matched, err := path.Match(pattern, name); err == nil && matched {
			filtered = append(filtered, pkg)
			continue
		}
		if matched, err := path.Match(pattern, path.Base(name)); err == nil && matched {
			filtered = append(filtered, pkg)
			continue
		}

		// "*" across segments: every non-empty part must appear in order
		if strings.Contains(pattern, "*") {
			if containsInOrder(name, strings.Split(pattern, "*")) {
				filtered = append(filtered, pkg)
			}
			continue
		}

		if !strings.Contains(pattern, "?") && strings.Contains(name, pattern) {
			filtered = append(filtered, pkg)
		}
	}

	return filtered
}

func containsInOrder(name string, parts []string) bool {
	hasPart := false
	rest := name
	for _, part := range parts {
		if part == "" {
			continue
		}
		hasPart = true
		i := strings.Index(rest, part)
		if i < 0 {
			return false
		}
		rest = rest[i+len(part):]
	}
	return hasPart
}

// Select keeps the packages named by go-style patterns: an import path, a
// directory relative to root ("./store"), or either with a "/..." suffix.
// No patterns selects everything.
func (f *Filter) Select(packages []domain.Package, root string, patterns []string) []domain.Package {
	if len(patterns) == 0 {
		return packages
	}

	var selected []domain.Package
	for _, pkg := range packages {
		for _, pattern := range patterns {
			if matchPattern(pkg, root, pattern) {
				selected = append(selected, pkg)
				break
			}
		}
	}
	return selected
}

func matchPattern(pkg domain.Package, root, pattern string) bool {
	recursive := pattern == "..." || strings.HasSuffix(pattern, "/...")
	base := strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")

	if pattern == "..." || base == "." || strings.HasPrefix(base, "./") || strings.HasPrefix(base, "../") || filepath.IsAbs(base) {
		dir := base
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		want, err := filepath.Abs(dir)
		if err != nil {
			return false
		}
		got, err := filepath.Abs(pkg.Dir)
		if err != nil {
			return false
		}
		if got == want {
			return true
		}
		return recursive && strings.HasPrefix(got, want+string(filepath.Separator))
	}

	if pkg.ImportPath == base {
		return true
	}
	return recursive && strings.HasPrefix(pkg.ImportPath, base+"/")
}
