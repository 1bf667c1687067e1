// Package markers loads marker declarations for Go tests from a YAML file.
// Go tests carry no annotations of their own, so tags and suite overrides can be
// attached by test name pattern instead.
package markers

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"ctrf/internal/domain"
)

// File is the on-disk layout of a marker file
type File struct {
	Markers []Rule `yaml:"markers"`
}

// Rule attaches marks to every test matching Match (and Package when set)
type Rule struct {
	Match   string `yaml:"match"`
	Package string `yaml:"package"`
	Marks   []Mark `yaml:"marks"`
}

// Mark is a marker as written in the file
type Mark struct {
	Name   string  `yaml:"name"`
	Args   Scalars `yaml:"args"`
	Kwargs Kwargs  `yaml:"kwargs"`
}

// Scalars is a YAML sequence of scalars kept as their literal text
type Scalars []string

// UnmarshalYAML implements yaml.Unmarshaler
func (s *Scalars) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = Scalars{node.Value}
		return nil
	}
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: args must be a list", node.Line)
	}
	out := make(Scalars, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: args must be scalars", item.Line)
		}
		out = append(out, item.Value)
	}
	*s = out
	return nil
}

// Kwargs is a YAML mapping decoded in declaration order
type Kwargs []domain.KV

// UnmarshalYAML implements yaml.Unmarshaler
func (k *Kwargs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: kwargs must be a mapping", node.Line)
	}
	out := make(Kwargs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: kwarg %q must be a scalar", value.Line, key.Value)
		}
		out = append(out, domain.KV{Key: key.Value, Value: value.Value})
	}
	*k = out
	return nil
}

// Set resolves markers for tests
type Set struct {
	rules []Rule
}

// Load reads and validates a marker file
func Load(filePath string) (*Set, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read marker file: %w", err)
	}
	return Parse(data)
}

// Parse decodes marker file content
func Parse(data []byte) (*Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse marker file: %w", err)
	}
	for i, rule := range f.Markers {
		if rule.Match == "" {
			return nil, fmt.Errorf("marker rule %d: match is required", i+1)
		}
		if _, err := path.Match(rule.Match, ""); err != nil {
			return nil, fmt.Errorf("marker rule %d: %w", i+1, err)
		}
		if _, err := path.Match(rule.Package, ""); err != nil {
			return nil, fmt.Errorf("marker rule %d: %w", i+1, err)
		}
		for _, m := range rule.Marks {
			if m.Name == "" {
				return nil, fmt.Errorf("marker rule %d: mark without name", i+1)
			}
		}
	}
	return &Set{rules: f.Markers}, nil
}

// Len returns the number of rules
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Markers returns the markers of every matching rule in file order
func (s *Set) Markers(pkg, test string) []domain.Marker {
	if s == nil {
		return nil
	}
	root, _, _ := strings.Cut(test, "/")
	var out []domain.Marker
	for _, rule := range s.rules {
		if !matches(rule.Match, test) && !matches(rule.Match, root) {
			continue
		}
		if rule.Package != "" && !matches(rule.Package, pkg) {
			continue
		}
		for _, m := range rule.Marks {
			out = append(out, domain.Marker{Name: m.Name, Args: m.Args, Kwargs: m.Kwargs})
		}
	}
	return out
}

func matches(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
