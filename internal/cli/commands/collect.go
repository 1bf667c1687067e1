package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctrf/internal/config"
	"ctrf/internal/discovery"
	"ctrf/internal/parser"
	"ctrf/internal/report"
	"ctrf/internal/storage"
	"ctrf/internal/ui"
)

// CollectCommand builds a report from an event stream produced elsewhere,
// e.g. `go test -json ./... | ctrf collect --ctrf`
type CollectCommand struct {
	config    *config.Config
	scanner   *discovery.Scanner
	parser    *discovery.Parser
	storage   storage.Storage
	formatter *ui.Formatter
	logger    *zap.Logger
}

// NewCollectCommand creates a new CollectCommand
func NewCollectCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	parser *discovery.Parser,
	st storage.Storage,
	formatter *ui.Formatter,
	logger *zap.Logger,
) *CollectCommand {
	return &CollectCommand{
		config:    cfg,
		scanner:   scanner,
		parser:    parser,
		storage:   st,
		formatter: formatter,
		logger:    logger,
	}
}

// Execute runs the command
func (cc *CollectCommand) Execute(cmd *cobra.Command, args []string) error {
	rest, err := claimReportPath(cmd, cc.config, cc.storage, args)
	if err != nil {
		return err
	}
	if err := cobra.MaximumNArgs(1)(cmd, rest); err != nil {
		return err
	}
	if len(args) == 1 && len(rest) == 0 {
		// Without another argument the file could as well be the input
		path := cc.config.ReportPath
		if _, err := os.Stat(cc.config.GetOutputPath()); err == nil {
			return fmt.Errorf("%s follows a bare --ctrf and already exists; write --ctrf=%s to replace it, or name the input before --ctrf", path, path)
		}
	}
	args = rest

	var in io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open event stream: %w", err)
		}
		defer f.Close()
		in = f
	}

	rep := report.New(report.DefaultTool)
	collector := report.NewCollector(rep, report.Options{DefaultSuite: cc.config.Suite}, cc.logger)

	switch cc.config.Flags.Format {
	case "", config.DefaultEventFormat:
		if err := cc.collectGoTest(in, collector); err != nil {
			return err
		}
	case "events":
		n, err := parser.ReadEvents(in, collector.OnTestFinished)
		if err != nil {
			return err
		}
		cc.logger.Debug("read events", zap.Int("events", n))
	default:
		return fmt.Errorf("unknown event format %q (want gotest or events)", cc.config.Flags.Format)
	}

	if !cc.config.ReportEnabled {
		return report.Encode(cmd.OutOrStdout(), rep, report.NewMeta(0))
	}
	cc.formatter.PrintSummary(rep, 0, 1)
	if err := cc.storage.Save(rep, report.NewMeta(0)); err != nil {
		return fmt.Errorf("failed to save CTRF report: %w", err)
	}
	return nil
}

func (cc *CollectCommand) collectGoTest(in io.Reader, collector *report.Collector) error {
	var files *discovery.Index
	if dir := cc.config.Flags.PackageDir; dir != "" {
		packages, err := cc.scanner.Scan(dir)
		if err != nil {
			return err
		}
		files = cc.parser.BuildIndex(packages)
	}

	set, err := loadMarkers(cc.config)
	if err != nil {
		return err
	}

	stream := parser.NewGoTestStream(collector.OnTestFinished, files, set, cc.logger)
	if _, err := stream.ReadFrom(in); err != nil {
		return err
	}
	return stream.Close()
}
