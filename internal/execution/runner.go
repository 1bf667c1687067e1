package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"ctrf/internal/config"
)

// Runner executes `go test -json` for a partition of packages
type Runner struct {
	config *config.Config
}

// NewRunner creates a new Runner
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{config: cfg}
}

// Run executes the go tool for the given packages. Test failures are part of
// the stream and are not reported as an error.
func (r *Runner) Run(ctx context.Context, packages []string, workerID int, stdout io.Writer) error {
	args := append([]string{"test", "-json"}, r.config.GoTestArgs...)
	args = append(args, packages...)
	cmd := exec.CommandContext(ctx, r.config.GoBinary, args...)

	// Set environment variables
	cmd.Env = os.Environ() // Start with current environment
	cmd.Env = append(cmd.Env,
		"CTRF_WORKER="+r.config.GetWorkerName(workerID),
		"CTRF_WORKER_COUNT="+strconv.Itoa(r.config.Processors),
	)

	// Set working directory
	cmd.Dir = r.config.ProjectPath

	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		// go test exits 1 when tests or builds fail
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s test: %w: %s", r.config.GoBinary, err, lastLines(stderr.String(), 5))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
