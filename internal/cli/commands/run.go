package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctrf/internal/config"
	"ctrf/internal/discovery"
	"ctrf/internal/execution"
	"ctrf/internal/history"
	"ctrf/internal/markers"
	"ctrf/internal/report"
	"ctrf/internal/storage"
	"ctrf/internal/ui"
)

// ErrTestsFailed is returned when the run finished with failed or errored tests
var ErrTestsFailed = errors.New("tests failed")

// RunCommand handles the run command
type RunCommand struct {
	config    *config.Config
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	parser    *discovery.Parser
	executor  *execution.WorkerPool
	storage   storage.Storage
	formatter *ui.Formatter
	publisher history.Publisher
	logger    *zap.Logger
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	filter *discovery.Filter,
	parser *discovery.Parser,
	executor *execution.WorkerPool,
	st storage.Storage,
	formatter *ui.Formatter,
	publisher history.Publisher,
	logger *zap.Logger,
) *RunCommand {
	return &RunCommand{
		config:    cfg,
		scanner:   scanner,
		filter:    filter,
		parser:    parser,
		executor:  executor,
		storage:   st,
		formatter: formatter,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute runs the command. Arguments before "--" select packages, the rest
// is passed to go test.
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	patterns := args
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		patterns = args[:dash]
		rc.config.GoTestArgs = append([]string(nil), args[dash:]...)
	}
	patterns, err := claimReportPath(cmd, rc.config, rc.storage, patterns)
	if err != nil {
		return err
	}

	// Discover packages
	packages, err := rc.scanner.Scan(rc.config.GetTestPath())
	if err != nil {
		return err
	}
	packages = rc.filter.Select(packages, rc.config.ProjectPath, patterns)
	packages = rc.filter.FilterByName(packages, rc.config.Flags.NameFilter)

	if len(packages) == 0 {
		color.Yellow("No test packages to execute")
		if !rc.config.ReportEnabled {
			return nil
		}
		// An empty report still tells consumers the run happened
		rep := report.New(report.DefaultTool)
		if err := rc.storage.Save(rep, report.NewMeta(0)); err != nil {
			return fmt.Errorf("failed to save CTRF report: %w", err)
		}
		return nil
	}

	set, err := loadMarkers(rc.config)
	if err != nil {
		return err
	}
	rc.logger.Debug("selected packages",
		zap.Int("packages", len(packages)),
		zap.Int("marker_rules", set.Len()),
		zap.Strings("go_test_args", rc.config.GoTestArgs))
	rc.executor.SetSources(rc.parser.BuildIndex(packages), set)

	// Total is unknown until every package ran
	progressBar := ui.NewProgressBar(-1)
	rc.executor.SetProgress(progressBar)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, execErr := rc.executor.Execute(ctx, packages)
	if result == nil {
		return execErr
	}

	meta := report.NewMeta(result.Workers)
	rc.formatter.PrintSummary(result.Report, result.Duration, result.Workers)
	if rc.config.ReportEnabled {
		if err := rc.storage.Save(result.Report, meta); err != nil {
			return fmt.Errorf("failed to save CTRF report: %w", err)
		}
	}

	if rc.config.Flags.Publish {
		// The run may have been interrupted; publishing still gets its own context
		if err := rc.publisher.Publish(context.WithoutCancel(ctx), result.Report, meta); err != nil {
			return fmt.Errorf("failed to publish report: %w", err)
		}
	}

	if execErr != nil {
		return execErr
	}
	summary := result.Report.Summary()
	if summary.Failed > 0 || summary.Errors > 0 {
		return ErrTestsFailed
	}
	return nil
}

// loadMarkers reads the configured marker file. A missing default file is not an error.
func loadMarkers(cfg *config.Config) (*markers.Set, error) {
	path, _ := cfg.GetMarkersPath()
	if path == "" {
		return nil, nil
	}
	set, err := markers.Load(path)
	if err != nil {
		return nil, err
	}
	return set, nil
}
