package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ctrf/internal/config"
	"ctrf/internal/discovery"
	"ctrf/internal/domain"
	"ctrf/internal/report"
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	parser *discovery.Parser
	out    io.Writer
}

// NewFormatter creates a new Formatter
func NewFormatter(cfg *config.Config, parser *discovery.Parser) *Formatter {
	return &Formatter{
		config: cfg,
		parser: parser,
		out:    os.Stdout,
	}
}

// SetOutput redirects everything the formatter prints
func (f *Formatter) SetOutput(w io.Writer) {
	f.out = w
}

func (f *Formatter) line(c *color.Color, format string, args ...interface{}) {
	fmt.Fprintln(f.out, c.Sprintf(format, args...))
}

// PrintSummary prints the summary table of a run followed by a tree of the
// tests that failed or errored
func (f *Formatter) PrintSummary(rep *report.Report, duration time.Duration, workers int) {
	summary := rep.Summary()

	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", formatDuration(duration)))
	t.AppendHeader(table.Row{"Status", "Count"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Count", Align: text.AlignRight},
	})
	t.AppendRow(table.Row{color.GreenString("passed"), summary.Passed})
	t.AppendRow(table.Row{color.RedString("failed"), summary.Failed})
	t.AppendRow(table.Row{color.YellowString("skipped"), summary.Skipped})
	t.AppendRow(table.Row{color.MagentaString("error"), summary.Errors})
	if summary.Other > 0 {
		t.AppendRow(table.Row{"other", summary.Other})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"tests", summary.Tests})
	t.AppendFooter(table.Row{"workers", workers})
	t.SetStyle(table.StyleLight)
	t.Render()

	fmt.Fprintln(f.out)
	if f.config.ReportEnabled {
		f.line(color.New(color.FgCyan), "CTRF report: %s", f.config.GetOutputPath())
	}
	problems := Problems(rep)
	if len(problems) == 0 {
		f.line(color.New(color.FgGreen), "✓ All tests passed!")
		return
	}
	f.line(color.New(color.FgRed), "✗ %d failed, %d errored", summary.Failed, summary.Errors)
	fmt.Fprintln(f.out)
	f.printFailedTestsTree(problems)
}

// Problems returns the failed and errored records of a report, ordered by id
func Problems(rep *report.Report) []domain.TestRecord {
	var out []domain.TestRecord
	for _, rec := range rep.Tests() {
		if rec.Status == domain.StatusFailed || rec.Status == domain.StatusError {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FailedPackages returns the import paths holding a failed or errored test
func FailedPackages(rep *report.Report) map[string]struct{} {
	out := make(map[string]struct{})
	for _, rec := range Problems(rep) {
		out[packageOf(rec.ID)] = struct{}{}
	}
	return out
}

func packageOf(id string) string {
	pkg, _, ok := strings.Cut(id, "::")
	if !ok {
		return ""
	}
	return pkg
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

// TreeNode represents a node in the package tree structure
type TreeNode struct {
	Name      string
	Children  map[string]*TreeNode
	Failures  []domain.TestRecord
	IsPackage bool
}

// printFailedTestsTree prints failures grouped by the segments of their import path
func (f *Formatter) printFailedTestsTree(failures []domain.TestRecord) {
	byPackage := make(map[string][]domain.TestRecord)
	for _, rec := range failures {
		pkg := packageOf(rec.ID)
		byPackage[pkg] = append(byPackage[pkg], rec)
	}

	root := &TreeNode{Children: make(map[string]*TreeNode)}
	for pkg, records := range byPackage {
		if pkg == "" {
			pkg = "(unknown package)"
		}
		current := root
		parts := strings.Split(pkg, "/")
		for i, part := range parts {
			if part == "" {
				continue
			}
			if current.Children[part] == nil {
				current.Children[part] = &TreeNode{
					Name:     part,
					Children: make(map[string]*TreeNode),
				}
			}
			current = current.Children[part]
			if i == len(parts)-1 {
				current.IsPackage = true
				current.Failures = records
			}
		}
	}

	f.printTreeNode(root, "")
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string) {
	keys := make([]string, 0, len(node.Children))
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		child := node.Children[key]
		last := i == len(keys)-1

		connector, nested := "├── ", "│   "
		if last {
			connector, nested = "└── ", "    "
		}
		if child.IsPackage {
			f.line(color.New(color.FgYellow), "%s%s%s", prefix, connector, child.Name)
		} else {
			f.line(color.New(color.FgCyan), "%s%s%s", prefix, connector, child.Name)
		}

		// Failures come before nested packages
		for j, rec := range child.Failures {
			caseConnector := "├── "
			if j == len(child.Failures)-1 && len(child.Children) == 0 {
				caseConnector = "└── "
			}
			c := color.New(color.FgRed)
			if rec.Status == domain.StatusError {
				c = color.New(color.FgMagenta)
			}
			f.line(c, "%s%s%s%s (%s)", prefix, nested, caseConnector, rec.Name, rec.RawStatus)
		}

		f.printTreeNode(child, prefix+nested)
	}
}

// CountTestCases returns the total number of test functions across the given packages
func (f *Formatter) CountTestCases(packages []domain.Package) (int, error) {
	var total int
	for _, pkg := range packages {
		for _, file := range pkg.Files {
			cases, err := f.parser.FindTestCases(filepath.Join(pkg.Dir, file))
			if err != nil {
				return 0, err
			}
			total += len(cases)
		}
	}
	return total, nil
}

// PrintTestList prints the discovered packages, optionally with their test functions.
// failed is optional; packages in this set are marked with [F] (from the last report).
func (f *Formatter) PrintTestList(packages []domain.Package, showTestCases bool, failed map[string]struct{}) error {
	if showTestCases {
		f.line(color.New(color.FgGreen), "Found %d test package(s) with test cases:\n", len(packages))
	} else {
		f.line(color.New(color.FgGreen), "Found %d test package(s):\n", len(packages))
	}

	for i, pkg := range packages {
		lastPkg := i == len(packages)-1

		failMarker := ""
		if _, ok := failed[pkg.ImportPath]; ok {
			failMarker = " " + color.RedString("[F]")
		}
		connector, nested := "├── ", "│   "
		if lastPkg {
			connector, nested = "└── ", "    "
		}
		f.line(color.New(color.FgCyan), "%s%s%s", connector, pkg.ImportPath, failMarker)

		if !showTestCases {
			continue
		}

		var cases []string
		for _, file := range pkg.Files {
			found, err := f.parser.FindTestCases(filepath.Join(pkg.Dir, file))
			if err != nil {
				f.line(color.New(color.FgRed), "%s%v", nested, err)
				continue
			}
			for _, name := range found {
				cases = append(cases, file+": "+name)
			}
		}

		if len(cases) == 0 {
			fmt.Fprintf(f.out, "%s└── %s\n", nested, color.RedString("(no test cases found)"))
		}
		for j, testCase := range cases {
			caseConnector := "├── "
			if j == len(cases)-1 {
				caseConnector = "└── "
			}
			fmt.Fprintf(f.out, "%s%s%s\n", nested, caseConnector, color.YellowString(testCase))
		}

		// Add spacing between packages (except for the last one)
		if !lastPkg {
			fmt.Fprintln(f.out)
		}
	}

	return nil
}
