package execution

import (
	"context"
	"io"
	"time"

	"ctrf/internal/domain"
	"ctrf/internal/report"
)

// Executor executes tests and returns the merged report
type Executor interface {
	Execute(ctx context.Context, packages []domain.Package) (*Result, error)
}

// TestRunner runs the tests of some packages and streams `go test -json` output to stdout
type TestRunner interface {
	Run(ctx context.Context, packages []string, workerID int, stdout io.Writer) error
}

// Result is the outcome of a run
type Result struct {
	Report   *report.Report // Merged report, owned by the caller
	Duration time.Duration  // Wall time of the run
	Workers  int            // Number of workers that ran a partition
}
