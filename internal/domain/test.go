package domain

import "time"

// Phase is the stage of a test's lifecycle in which its final outcome was decided
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseCall     Phase = "call"
	PhaseTeardown Phase = "teardown"
)

// Outcome is the result reported by the runner for a phase
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// KV is a single keyword argument of a marker
type KV struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Marker is a named annotation attached to a test
type Marker struct {
	Name   string   `json:"name"`
	Args   []string `json:"args,omitempty"`
	Kwargs []KV     `json:"kwargs,omitempty"`
}

// Event is the "test finished" notification consumed by the collector.
// One event is expected per test.
type Event struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Package string            `json:"package,omitempty"`
	File    string            `json:"file,omitempty"`
	Phase   Phase             `json:"phase"`
	Outcome Outcome           `json:"outcome"`
	Start   time.Time         `json:"start"`
	Stop    time.Time         `json:"stop"`
	Markers []Marker          `json:"markers,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Trace   string            `json:"trace,omitempty"`
	Message string            `json:"message,omitempty"`
	Worker  string            `json:"worker,omitempty"`
}

// Package is a Go package that contains test files
type Package struct {
	Dir        string   // Directory on disk
	ImportPath string   // Import path derived from go.mod
	Files      []string // *_test.go files, relative to Dir
}
