package commands

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctrf/internal/config"
	"ctrf/internal/discovery"
	"ctrf/internal/storage"
	"ctrf/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	formatter *ui.Formatter
	storage   storage.Storage
	logger    *zap.Logger
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	filter *discovery.Filter,
	formatter *ui.Formatter,
	st storage.Storage,
	logger *zap.Logger,
) *ListCommand {
	return &ListCommand{
		config:    cfg,
		scanner:   scanner,
		filter:    filter,
		formatter: formatter,
		storage:   st,
		logger:    logger,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	packages, err := lc.scanner.Scan(lc.config.GetTestPath())
	if err != nil {
		return err
	}
	packages = lc.filter.Select(packages, lc.config.ProjectPath, args)
	packages = lc.filter.FilterByName(packages, lc.config.Flags.NameFilter)

	if len(packages) == 0 {
		color.Yellow("No test packages found")
		return nil
	}

	return lc.formatter.PrintTestList(packages, lc.config.Flags.TestCases, lc.lastFailures())
}

// lastFailures returns the packages that failed in the last written report, if any
func (lc *ListCommand) lastFailures() map[string]struct{} {
	path := lc.config.GetOutputPath()
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	rep, err := lc.storage.Load(path)
	if err != nil {
		lc.logger.Debug("ignoring unreadable report", zap.String("path", path), zap.Error(err))
		return nil
	}
	return ui.FailedPackages(rep)
}
