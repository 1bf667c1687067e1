package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctrf/internal/config"
	"ctrf/internal/report"
	"ctrf/internal/storage"
	"ctrf/internal/ui"
)

// MergeCommand merges CTRF reports written by separate runs, e.g. CI shards
type MergeCommand struct {
	config    *config.Config
	storage   storage.Storage
	formatter *ui.Formatter
	logger    *zap.Logger
}

// NewMergeCommand creates a new MergeCommand
func NewMergeCommand(cfg *config.Config, st storage.Storage, formatter *ui.Formatter, logger *zap.Logger) *MergeCommand {
	return &MergeCommand{
		config:    cfg,
		storage:   st,
		formatter: formatter,
		logger:    logger,
	}
}

// Execute runs the command
func (mc *MergeCommand) Execute(cmd *cobra.Command, args []string) error {
	parts := make([]*report.Report, 0, len(args))
	workers := 0
	for _, path := range args {
		rep, meta, err := mc.storage.LoadWithMeta(path)
		if err != nil {
			return err
		}
		if meta.Workers > 0 {
			workers += meta.Workers
		} else {
			workers++
		}
		parts = append(parts, rep)
	}

	merged, err := report.Merge(mc.logger, parts...)
	if err != nil {
		return err
	}
	if err := mc.storage.Save(merged, report.NewMeta(workers)); err != nil {
		return fmt.Errorf("failed to save merged report: %w", err)
	}

	mc.formatter.PrintSummary(merged, 0, workers)
	return nil
}
