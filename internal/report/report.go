package report

import (
	"errors"

	"ctrf/internal/domain"
)

// DefaultTool is the tool name recorded for go test runs
const DefaultTool = "gotest"

var (
	// ErrFrozen is returned when appending to a report that was handed off for serialization
	ErrFrozen = errors.New("report is frozen")
	// ErrNoPartitions is returned by Merge when called without any report
	ErrNoPartitions = errors.New("no partitions to merge")
)

// Report is the in-memory CTRF report owned by a single process.
// Records are only ever appended; the summary is derived from them.
type Report struct {
	tool   string
	tests  []domain.TestRecord
	frozen bool
}

// New creates an empty report for the given tool name
func New(tool string) *Report {
	return &Report{tool: tool}
}

// Tool returns the name of the tool that produced the records
func (r *Report) Tool() string {
	return r.tool
}

// Append adds a finished test to the report
func (r *Report) Append(rec domain.TestRecord) error {
	if r.frozen {
		return ErrFrozen
	}
	r.tests = append(r.tests, rec)
	return nil
}

// Len returns the number of records
func (r *Report) Len() int {
	return len(r.tests)
}

// Tests returns a copy of the records in completion order
func (r *Report) Tests() []domain.TestRecord {
	out := make([]domain.TestRecord, len(r.tests))
	copy(out, r.tests)
	return out
}

// Freeze prevents further mutation
func (r *Report) Freeze() {
	r.frozen = true
}

// Frozen reports whether the report was frozen
func (r *Report) Frozen() bool {
	return r.frozen
}

// Summary recomputes the status counts from the record list
func (r *Report) Summary() domain.Summary {
	return Summarize(r.tests)
}

// Summarize tallies records by status
func Summarize(tests []domain.TestRecord) domain.Summary {
	var s domain.Summary
	for i, t := range tests {
		s.Tests++
		switch t.Status {
		case domain.StatusPassed:
			s.Passed++
		case domain.StatusFailed:
			s.Failed++
		case domain.StatusSkipped:
			s.Skipped++
		case domain.StatusError:
			s.Errors++
		default:
			s.Other++
		}
		if i == 0 || t.Start < s.Start {
			s.Start = t.Start
		}
		if t.Stop > s.Stop {
			s.Stop = t.Stop
		}
	}
	return s
}
