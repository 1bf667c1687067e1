package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"ctrf/internal/domain"
)

// testFuncPattern matches top level test functions and TestMain
var testFuncPattern = regexp.MustCompile(`(?m)^func\s+(Test\w*)\s*\(\s*\w+\s+\*testing\.[TM]\s*\)`)

// Parser parses test files to extract test cases
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// FindTestCases finds all test functions declared in a Go test file
func (p *Parser) FindTestCases(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	seen := make(map[string]bool)
	var testCases []string
	for _, match := range testFuncPattern.FindAllSubmatch(content, -1) {
		name := string(match[1])
		if !seen[name] {
			seen[name] = true
			testCases = append(testCases, name)
		}
	}

	// Sort for consistent output
	sort.Strings(testCases)

	return testCases, nil
}

// Index maps test functions to the file declaring them, per import path
type Index struct {
	files map[string]map[string]string
}

// BuildIndex parses every test file of the given packages.
// Files that cannot be read are skipped.
func (p *Parser) BuildIndex(packages []domain.Package) *Index {
	idx := &Index{files: make(map[string]map[string]string)}
	for _, pkg := range packages {
		tests := make(map[string]string)
		for _, file := range pkg.Files {
			names, err := p.FindTestCases(filepath.Join(pkg.Dir, file))
			if err != nil {
				continue
			}
			for _, name := range names {
				tests[name] = file
			}
		}
		idx.files[pkg.ImportPath] = tests
	}
	return idx
}

// Resolve returns the file declaring test in pkg, or "" when unknown
func (i *Index) Resolve(pkg, test string) string {
	if i == nil {
		return ""
	}
	return i.files[pkg][test]
}
